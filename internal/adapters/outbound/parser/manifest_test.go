package parser_test

import (
	"testing"

	"github.com/openkraft/ecoscan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifest(t *testing.T) {
	src := `# -*- coding: utf-8 -*-
{
    'name': 'Sales Tasks',
    'version': '17.0.1.0.0',
    'category': 'Sales',
    'depends': ['base', 'mail'],
    'installable': True,
    'assets': {
        'web.assets_backend': [
            'sales/static/src/**/*',
            ('after', 'web/static/src/x.js', 'sales/static/lib/extra.js'),
            ('include', 'web._assets_helpers'),
        ],
    },
}
`
	res := parse(t, "sales/__manifest__.py", src)
	require.Empty(t, res.Errors)
	require.NotNil(t, res.Module)
	assert.Equal(t, domain.ModuleInfo{
		Name:        "sales",
		Title:       "Sales Tasks",
		Version:     "17.0.1.0.0",
		Category:    "Sales",
		Installable: true,
		Depends:     []string{"base", "mail"},
	}, *res.Module)

	require.Len(t, res.Bundles, 1)
	assert.Equal(t, "web.assets_backend", res.Bundles[0].Name)
	assert.Equal(t, "sales", res.Bundles[0].Module)
	assert.Equal(t, []string{"sales/static/src/**/*", "sales/static/lib/extra.js"}, res.Bundles[0].Paths)
}

func TestManifest_LegacyKeysAndUninstallable(t *testing.T) {
	src := `{
    "name": "Old",
    "installable": False,
    "js": ["static/src/js/old.js"],
}
`
	res := parse(t, "old/__openerp__.py", src)
	require.Empty(t, res.Errors)
	require.NotNil(t, res.Module)
	assert.False(t, res.Module.Installable)
	assert.Empty(t, res.Module.Depends)
	require.Len(t, res.Bundles, 1)
	assert.Equal(t, domain.Bundle{Module: "old", Name: "js", Paths: []string{"static/src/js/old.js"}}, res.Bundles[0])
}

func TestManifest_WithoutDict(t *testing.T) {
	res := parse(t, "bad/__manifest__.py", "name = 'x'\n")
	require.Len(t, res.Errors, 1)
	assert.Nil(t, res.Module)
}
