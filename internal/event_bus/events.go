package event_bus

const (
	ExpenseRecordedType EventType = "expense.recorded"
	ExpenseDeletedType  EventType = "expense.deleted"
	ProjectDeletedType  EventType = "project.deleted"
)

// ExpenseRecorded is published after an expense was created or updated.
type ExpenseRecorded struct {
	Id          string
	Title       string
	AmountCents int64
	Category    string
	ProjectId   string
	// Updated is false for a newly created expense.
	Updated bool
}

type ExpenseDeleted struct {
	Id        string
	ProjectId string
}

// ProjectDeleted is published after a project was removed. Expenses that
// referenced it are kept and count as unassigned spend from then on.
type ProjectDeleted struct {
	Id   string
	Name string
}
