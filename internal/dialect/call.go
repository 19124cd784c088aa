package dialect

// Call describes a module call; the chain API handle turns it into an extrinsic.
type Call struct {
	Section string `json:"section"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

func NewCall(section, method string, args ...any) *Call {
	if args == nil {
		args = []any{}
	}
	return &Call{Section: section, Method: method, Args: args}
}

// Name is "section.method".
func (c *Call) Name() string {
	return c.Section + "." + c.Method
}

// Batch wraps calls in utility.batchAll (atomic) or utility.batch.
// A single call is returned unwrapped.
func Batch(all bool, calls ...*Call) *Call {
	if len(calls) == 1 {
		return calls[0]
	}
	method := "batch"
	if all {
		method = "batchAll"
	}
	return NewCall("utility", method, calls)
}
