package parser_test

import (
	"testing"

	"github.com/openkraft/ecoscan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const taskViews = `<?xml version="1.0" encoding="utf-8"?>
<odoo>
    <record id="view_task_form" model="ir.ui.view">
        <field name="name">x.task.form</field>
        <field name="model">x.task</field>
        <field name="arch" type="xml">
            <form>
                <header>
                    <button name="action_done" invisible="state != 'draft'"/>
                </header>
                <field name="name"/>
                <field name="partner_id" domain="[('customer_rank', '>', 0)]"/>
                <field name="line_ids">
                    <tree><field name="product_id"/></tree>
                </field>
                <field name="done" attrs="{'invisible': [('state', '=', 'done')]}"/>
            </form>
        </field>
    </record>

    <record id="view_task_form_inherit" model="ir.ui.view">
        <field name="model">x.task</field>
        <field name="inherit_id" ref="view_task_form"/>
        <field name="arch" type="xml">
            <field name="name" position="after">
                <field name="owner_id"/>
            </field>
        </field>
    </record>

    <record id="view_task_search" model="ir.ui.view">
        <field name="model">x.task</field>
        <field name="arch" type="xml">
            <search>
                <filter name="mine" domain="[('user_id', '=', uid)]"/>
                <filter name="by_state" context="{'group_by': 'state'}"/>
            </search>
        </field>
    </record>

    <record id="action_task" model="ir.actions.act_window">
        <field name="name">Tasks</field>
        <field name="res_model">x.task</field>
        <field name="view_ids" eval="[(5, 0, 0), (0, 0, {'view_mode': 'form', 'view_id': ref('view_task_form')})]"/>
    </record>

    <menuitem id="menu_root" name="Tasks">
        <menuitem id="menu_tasks" action="action_task" groups="base.group_user, base.group_system"/>
    </menuitem>
</odoo>
`

func uiByID(t *testing.T, artifacts []domain.Artifact) map[string]*domain.UIArtifact {
	t.Helper()
	out := make(map[string]*domain.UIArtifact)
	for _, a := range artifacts {
		ui, ok := a.(*domain.UIArtifact)
		require.True(t, ok, "records only yield UI artifacts")
		out[ui.ExternalID] = ui
	}
	return out
}

func TestRecords_Views(t *testing.T) {
	res := parse(t, "sales/views/task_views.xml", taskViews)
	require.Empty(t, res.Errors)
	assert.Equal(t, domain.ScannerRecords, res.Scanner)

	byID := uiByID(t, res.Artifacts)
	require.Len(t, byID, 6)

	form := byID["view_task_form"]
	require.NotNil(t, form)
	assert.Equal(t, domain.ArtifactView, form.Type)
	assert.Equal(t, "sales", form.Module)
	assert.Equal(t, "sales/views/task_views.xml", form.File)
	assert.Equal(t, 3, form.Line)
	assert.Equal(t, "x.task", form.BoundEntity)
	assert.Equal(t, "form", form.ViewType)
	assert.Equal(t, []string{"done", "line_ids", "name", "partner_id", "state"}, form.FieldReferences,
		"sub-view fields and comodel domains are not the view's own")

	inherit := byID["view_task_form_inherit"]
	require.NotNil(t, inherit)
	assert.Equal(t, "view_task_form", inherit.InheritsRef)
	assert.Equal(t, []string{"name", "owner_id"}, inherit.FieldReferences)

	search := byID["view_task_search"]
	require.NotNil(t, search)
	assert.Equal(t, "search", search.ViewType)
	assert.Equal(t, []string{"state", "user_id"}, search.FieldReferences)
}

func TestRecords_ActionsAndMenus(t *testing.T) {
	byID := uiByID(t, parse(t, "sales/views/task_views.xml", taskViews).Artifacts)

	action := byID["action_task"]
	require.NotNil(t, action)
	assert.Equal(t, domain.ArtifactAction, action.Type)
	assert.Equal(t, "ir.actions.act_window", action.ActionKind)
	assert.Equal(t, "x.task", action.BoundEntity)
	assert.Equal(t, "Tasks", action.Name)
	assert.Equal(t, []string{"view_task_form"}, action.ViewRefs)

	root := byID["menu_root"]
	require.NotNil(t, root)
	assert.Equal(t, domain.ArtifactMenu, root.Type)
	assert.Empty(t, root.ParentRef)

	child := byID["menu_tasks"]
	require.NotNil(t, child)
	assert.Equal(t, "menu_root", child.ParentRef)
	assert.Equal(t, "action_task", child.ActionRef)
	assert.Equal(t, []string{"base.group_user", "base.group_system"}, child.Groups)
}

func TestRecords_ClientTemplates(t *testing.T) {
	src := `<?xml version="1.0" encoding="UTF-8"?>
<templates xml:space="preserve">
    <t t-name="sales.TaskCard">
        <div class="o_task_card"/>
    </t>
    <t t-name="sales.FormPatch" t-inherit="web.FormView" t-inherit-mode="extension"/>
</templates>
`
	byID := uiByID(t, parse(t, "sales/static/src/task_card.xml", src).Artifacts)
	require.Len(t, byID, 2)
	assert.Equal(t, domain.ArtifactTemplate, byID["sales.TaskCard"].Type)
	assert.Equal(t, 3, byID["sales.TaskCard"].Line)
	assert.Equal(t, "web.FormView", byID["sales.FormPatch"].InheritsRef)
}

func TestRecords_HTMLEntitiesInArch(t *testing.T) {
	res := parse(t, "sales/views/note_views.xml", `<odoo>
    <record id="view_note_form" model="ir.ui.view">
        <field name="model">x.note</field>
        <field name="arch" type="xml">
            <form>
                <div>Owner&nbsp;&mdash;&nbsp;<field name="owner_id"/></div>
            </form>
        </field>
    </record>
</odoo>`)
	require.Empty(t, res.Errors)

	form := uiByID(t, res.Artifacts)["view_note_form"]
	require.NotNil(t, form)
	assert.Equal(t, "x.note", form.BoundEntity)
	assert.Equal(t, []string{"owner_id"}, form.FieldReferences)
}

func TestRecords_MalformedRecordsOneError(t *testing.T) {
	res := parse(t, "sales/views/broken.xml", `<odoo><record id="x" model="ir.ui.view"></odoo>`)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, domain.ScannerRecords, res.Errors[0].Scanner)
	assert.Equal(t, 1, res.Errors[0].Line)
	assert.Empty(t, res.Artifacts)
}
