package eval

// UnknownFunction occurs when a Call references a name absent from the
// built-in function table.
type UnknownFunction struct {
	Name string
}

func (e *UnknownFunction) Error() string {
	return `unknown function "` + e.Name + `"`
}

// UnknownVariable occurs when a Path's head resolves to neither "this"
// nor a bound loop variable.
type UnknownVariable struct {
	Name string
}

func (e *UnknownVariable) Error() string {
	return `unknown variable "` + e.Name + `"`
}

// BadArgument occurs when a built-in function receives the wrong
// number or type of arguments.
type BadArgument struct {
	Func string
	Msg  string
}

func (e *BadArgument) Error() string {
	return `bad argument to ` + e.Func + `: ` + e.Msg
}
