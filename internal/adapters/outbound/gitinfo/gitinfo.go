// Package gitinfo reads the revision of the repository holding a scan root.
package gitinfo

import (
	"fmt"

	"github.com/go-git/go-git/v5"

	"github.com/openkraft/ecoscan/internal/domain"
)

// GitInfoAdapter implements domain.GitInfo using go-git.
type GitInfoAdapter struct{}

func New() *GitInfoAdapter {
	return &GitInfoAdapter{}
}

// Revision returns HEAD of the repository containing projectPath. The scan
// root may sit below the repository top level.
func (g *GitInfoAdapter) Revision(projectPath string) (domain.Revision, error) {
	repo, err := git.PlainOpenWithOptions(projectPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return domain.Revision{}, fmt.Errorf("opening git repo: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return domain.Revision{}, fmt.Errorf("getting HEAD: %w", err)
	}

	rev := domain.Revision{Commit: head.Hash().String()}
	if head.Name().IsBranch() {
		rev.Branch = head.Name().Short()
	}
	return rev, nil
}
