package parser_test

import (
	"testing"

	"github.com/openkraft/ecoscan/internal/adapters/outbound/parser"
	"github.com/openkraft/ecoscan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, rel, src string) *parser.Result {
	t.Helper()
	p := parser.New()
	defer p.Close()
	return p.Parse(rel, []byte(src))
}

func elements(res *parser.Result, kind domain.ElementKind) []*domain.CodeElement {
	var out []*domain.CodeElement
	for _, a := range res.Artifacts {
		if e, ok := a.(*domain.CodeElement); ok && e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

const taskModel = `from odoo import api, fields, models


class SaleTask(models.Model):
    _name = 'x.task'
    _description = "Task"
    _inherit = ['mail.thread']
    _order = 'name'

    name = fields.Char(string='Name', required=True)
    state = fields.Selection([('draft', 'Draft')])
    partner_id = fields.Many2one('res.partner', string='Customer')
    line_ids = fields.One2many('x.task.line', 'task_id')
    tag_ids = fields.Many2many(comodel_name='x.tag')

    @api.depends('line_ids')
    def _compute_total(self):
        for rec in self:
            rec.total = len(rec.line_ids)

    def action_done(self, force=False):
        pass
`

func TestPython_Model(t *testing.T) {
	res := parse(t, "sales/models/task.py", taskModel)
	require.Empty(t, res.Errors)
	assert.Equal(t, domain.ScannerCode, res.Scanner)

	models := elements(res, domain.KindModel)
	require.Len(t, models, 1)
	m := models[0]
	assert.Equal(t, "x.task", m.QualifiedName)
	assert.Equal(t, "SaleTask", m.ClassName)
	assert.Equal(t, "sales", m.Module)
	assert.Equal(t, "Task", m.Description)
	assert.Equal(t, []string{"mail.thread"}, m.Inherits)
	assert.Equal(t, []string{"models.Model"}, m.Bases)
	assert.Equal(t, "name", m.Attributes["order"])
	assert.Equal(t, 4, m.Lines.Start)

	names := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"name", "state", "partner_id", "line_ids", "tag_ids"}, names)

	assert.Equal(t, "Char", m.Fields[0].Type)
	assert.Equal(t, "Name", m.Fields[0].Attrs["string"])
	assert.Equal(t, "True", m.Fields[0].Attrs["required"])
	assert.Equal(t, 10, m.Fields[0].Line)
	assert.Equal(t, "res.partner", m.Fields[2].Target)
	assert.Equal(t, "x.task.line", m.Fields[3].Target)
	assert.Equal(t, "task_id", m.Fields[3].Inverse)
	assert.Equal(t, "x.tag", m.Fields[4].Target)
	assert.Empty(t, m.Fields[1].Target)

	require.Len(t, m.Methods, 2)
	compute := m.Methods[0]
	assert.Equal(t, "_compute_total", compute.Name)
	assert.Equal(t, []string{"api.depends('line_ids')"}, compute.Decorators)
	assert.Empty(t, compute.Args)
	assert.Len(t, compute.BodyHash, 16)
	assert.Len(t, compute.SignatureHash, 16)

	done := m.Methods[1]
	assert.Equal(t, []string{"force"}, done.Args)
	assert.Empty(t, done.BodyHash, "a pass-only body has no fingerprint")
}

func TestPython_ExtensionAndFlavours(t *testing.T) {
	src := `from odoo import fields, models


class Partner(models.Model):
    _inherit = 'res.partner'

    task_ids = fields.One2many('x.task', 'partner_id')


class Wizard(models.TransientModel):
    _name = 'x.wizard'


class Mixin(models.AbstractModel):
    _name = 'x.mixin'
`
	res := parse(t, "sales/models/partner.py", src)
	models := elements(res, domain.KindModel)
	require.Len(t, models, 3)

	assert.Empty(t, models[0].QualifiedName)
	assert.Equal(t, "Partner", models[0].EntityName())
	assert.Equal(t, []string{"res.partner"}, models[0].Inherits)
	assert.True(t, models[1].Transient)
	assert.True(t, models[2].Abstract)
}

func TestPython_FunctionBodyHash(t *testing.T) {
	src := `def helper(a, b):
    total = a + b
    return total


def helper_copy(x, y):
    # same body, different signature
    total = a + b
    return total


def other(a, b):
    total = a - b
    return total


def outer():
    def inner():
        return 1
    return inner
`
	res := parse(t, "sales/tools/math.py", src)
	fns := elements(res, domain.KindFunction)
	byName := make(map[string]*domain.CodeElement)
	for _, fn := range fns {
		byName[fn.QualifiedName] = fn
	}
	require.Len(t, byName, 5)

	assert.Equal(t, byName["helper"].BodyHash, byName["helper_copy"].BodyHash)
	assert.NotEqual(t, byName["helper"].BodyHash, byName["other"].BodyHash)
	assert.NotEqual(t, byName["helper"].SignatureHash, byName["helper_copy"].SignatureHash)
	assert.Equal(t, 2, byName["helper"].Arity)
	assert.Empty(t, byName["helper"].Owner)
	assert.Equal(t, "outer", byName["inner"].Owner)
	assert.Equal(t, 1, byName["helper"].Lines.Start)
}

func TestPython_CallsAndImports(t *testing.T) {
	src := `import os
from pathlib import Path
from ..other import thing as alias


def load():
    with open('/home/u/github-repos/other/data.csv') as fh:
        return fh.read()


Path('/tmp/x').read_text()
`
	res := parse(t, "sales/tools/io.py", src)
	require.NotNil(t, res.Facts)
	assert.Equal(t, "sales/tools/io.py", res.Facts.Path)

	require.Len(t, res.Facts.Imports, 3)
	assert.Equal(t, domain.Import{Module: "os", Line: 1}, res.Facts.Imports[0])
	assert.Equal(t, domain.Import{Module: "pathlib", Name: "Path", Line: 2}, res.Facts.Imports[1])
	assert.Equal(t, domain.Import{Module: "other", Name: "thing", Level: 2, Line: 3}, res.Facts.Imports[2])

	require.Len(t, res.Facts.Calls, 2)
	open := res.Facts.Calls[0]
	assert.Equal(t, "open", open.Func)
	assert.Equal(t, []string{"/home/u/github-repos/other/data.csv"}, open.StringArgs)
	assert.Equal(t, 7, open.Line)
	assert.Equal(t, "load", open.EnclosingFn)

	path := res.Facts.Calls[1]
	assert.Equal(t, "Path", path.Func)
	assert.Empty(t, path.EnclosingFn)
}

func TestPython_InitImports(t *testing.T) {
	src := `from . import models
from . import wizard, report
from .controllers import main
import hooks
`
	res := parse(t, "sales/__init__.py", src)
	assert.Equal(t, []string{"models", "wizard", "report", "controllers", "hooks"}, res.InitImports)

	res = parse(t, "sales/models/task.py", src)
	assert.Nil(t, res.InitImports, "only package files declare init imports")
}

func TestPython_Controller(t *testing.T) {
	src := `from odoo import http


class Api(http.Controller):
    @http.route('/api/tasks', type='json', auth='user')
    def tasks(self, **kw):
        return []

    def _helper(self):
        return 1
`
	res := parse(t, "sales/controllers/main.py", src)
	ctrls := elements(res, domain.KindController)
	require.Len(t, ctrls, 1)
	assert.Equal(t, "Api", ctrls[0].QualifiedName)

	routes := elements(res, domain.KindRoute)
	require.Len(t, routes, 1)
	assert.Equal(t, "Api.tasks", routes[0].QualifiedName)
	assert.Equal(t, "/api/tasks", routes[0].Attributes["path"])
	assert.Equal(t, "json", routes[0].Attributes["type"])
	assert.Equal(t, "user", routes[0].Attributes["auth"])
	assert.Equal(t, 0, routes[0].Arity)

	methods := elements(res, domain.KindMethod)
	require.Len(t, methods, 1)
	assert.Equal(t, "Api._helper", methods[0].QualifiedName)
	assert.Equal(t, "Api", methods[0].Owner)
}

func TestPython_SyntaxErrorRecordsOneError(t *testing.T) {
	src := `from odoo import models


class Broken(models.Model):
    _name = 'x.broken'

    def oops(self:
        pass
`
	res := parse(t, "sales/models/broken.py", src)
	require.Len(t, res.Errors, 1)
	e := res.Errors[0]
	assert.Equal(t, "sales/models/broken.py", e.File)
	assert.Equal(t, domain.ScannerCode, e.Scanner)
	assert.Positive(t, e.Line)
	assert.Empty(t, res.Artifacts)
	assert.Nil(t, res.Facts)
}

func TestScannerFor(t *testing.T) {
	tests := []struct {
		rel  string
		want string
	}{
		{"m/models/a.py", domain.ScannerCode},
		{"m/views/a.xml", domain.ScannerRecords},
		{"m/static/src/a.js", domain.ScannerAssets},
		{"m/static/src/a.SCSS", domain.ScannerAssets},
		{"m/README.md", ""},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.want, parser.ScannerFor(tt.rel))
		})
	}

	assert.True(t, parser.IsManifest("m/__manifest__.py"))
	assert.True(t, parser.IsManifest("m/__openerp__.py"))
	assert.False(t, parser.IsManifest("m/sub/__manifest__.py"))
}
