package sync

// OpKind is the kind of a pending local mutation.
type OpKind string

const (
	OpCreate OpKind = "create"
	OpDelete OpKind = "delete"
	OpModify OpKind = "modify"
)

// Operation is one journaled local mutation. The journal holds at most one
// operation per path, so a path never carries two pending kinds at once.
type Operation struct {
	Path string
	Kind OpKind
}
