package task

import "tasktrack/domain/shared"

// ChecklistItem is a child entity of Task. It has no repository of its own and
// raises its events through the task it is attached to.
type ChecklistItem struct {
	shared.AggregateEntity[string, string]
	text     string
	checked  bool
	position int
}

func newChecklistItem(id, taskID, text string, position int) *ChecklistItem {
	return &ChecklistItem{
		AggregateEntity: shared.NewAggregateEntity(id, taskID),
		text:            text,
		position:        position,
	}
}

func (i *ChecklistItem) check() error {
	if i.checked {
		return ErrChecklistItemChecked
	}
	itemID := i.ID()
	if err := i.Raise(func(m shared.EventMeta) shared.DomainEvent {
		return &ChecklistItemCheckedEvent{EventMeta: m, itemID: itemID}
	}); err != nil {
		return err
	}
	i.checked = true
	return nil
}

func (i *ChecklistItem) Text() string  { return i.text }
func (i *ChecklistItem) Checked() bool { return i.checked }
func (i *ChecklistItem) Position() int { return i.position }

// ChecklistItemDTO is the persisted form of a checklist item.
type ChecklistItemDTO struct {
	ID       string
	TaskID   string
	Text     string
	Checked  bool
	Position int
}

func (i *ChecklistItem) toDTO() ChecklistItemDTO {
	return ChecklistItemDTO{
		ID:       i.ID(),
		TaskID:   i.AggregateRootID(),
		Text:     i.text,
		Checked:  i.checked,
		Position: i.position,
	}
}
