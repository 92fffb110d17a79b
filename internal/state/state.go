// Package state encodes and decodes the per-user conversation state that
// drives input routing. The stored representation is a single string tag
// (kept for schema compatibility), but callers only ever see the typed
// variants below, so a tag that fails to parse can never route to a dead
// handler.
package state

import "strings"

type Kind int

const (
	KindStart Kind = iota
	KindMainMenu
	KindProfileEdit
	KindEditingField
	KindFilterMenu
	KindAwaitingFilterAge
	KindAwaitingTopUpAmount
	KindAdminAddingFieldName
	KindAdminAddingFieldLabel
	KindAdminAddingFieldType
)

// State is a tagged variant: Kind plus the associated data for kinds that
// carry any (currently only the field name for KindEditingField).
type State struct {
	Kind  Kind
	Field string
}

var (
	Start             = State{Kind: KindStart}
	MainMenu          = State{Kind: KindMainMenu}
	ProfileEdit       = State{Kind: KindProfileEdit}
	FilterMenu        = State{Kind: KindFilterMenu}
	AwaitingFilterAge = State{Kind: KindAwaitingFilterAge}
	AwaitingTopUp     = State{Kind: KindAwaitingTopUpAmount}
	AdminAddFieldName = State{Kind: KindAdminAddingFieldName}
)

// EditingField returns the state for editing one profile field.
func EditingField(fieldName string) State {
	return State{Kind: KindEditingField, Field: fieldName}
}

// AdminFieldLabel is the admin field-creation step awaiting the label
// for the named field; AdminFieldType awaits its type.
func AdminFieldLabel(fieldName string) State {
	return State{Kind: KindAdminAddingFieldLabel, Field: fieldName}
}

func AdminFieldType(fieldName string) State {
	return State{Kind: KindAdminAddingFieldType, Field: fieldName}
}

const (
	editingPrefix    = "editing_"
	adminLabelPrefix = "admin_adding_field_label_"
	adminTypePrefix  = "admin_adding_field_type_"
)

// simple bidirectional tag table for data-free kinds
var tags = map[Kind]string{
	KindStart:                "start",
	KindMainMenu:             "main_menu",
	KindProfileEdit:          "profile_edit",
	KindFilterMenu:           "filter_menu",
	KindAwaitingFilterAge:    "awaiting_filter_age",
	KindAwaitingTopUpAmount:  "awaiting_topup_amount",
	KindAdminAddingFieldName: "admin_adding_field_name",
}

// String renders the durable tag stored in users.state.
func (s State) String() string {
	switch s.Kind {
	case KindEditingField:
		return editingPrefix + s.Field
	case KindAdminAddingFieldLabel:
		return adminLabelPrefix + s.Field
	case KindAdminAddingFieldType:
		return adminTypePrefix + s.Field
	}
	if tag, ok := tags[s.Kind]; ok {
		return tag
	}
	return tags[KindMainMenu]
}

// Parse decodes a stored tag. Unknown tags decode to MainMenu: a stale or
// mangled state must recover to a known-good menu, never dead-end.
func Parse(tag string) State {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return Start
	}
	if name, ok := strings.CutPrefix(tag, adminLabelPrefix); ok && name != "" {
		return AdminFieldLabel(name)
	}
	if name, ok := strings.CutPrefix(tag, adminTypePrefix); ok && name != "" {
		return AdminFieldType(name)
	}
	if name, ok := strings.CutPrefix(tag, editingPrefix); ok && name != "" {
		return EditingField(name)
	}
	for kind, t := range tags {
		if t == tag {
			return State{Kind: kind}
		}
	}
	return MainMenu
}
