package route

import "fmt"

type Access int

const (
	Public Access = iota
	// Protected routes need a session.
	Protected
	// VisitorOnly routes make no sense with a session, e.g. login.
	VisitorOnly
)

const (
	Home     = "home"
	Todo     = "todo"
	About    = "about"
	Login    = "login"
	Register = "register"
	// Todos shows a single todo by id.
	Todos = "todos"
)

type Route struct {
	Name   string
	Path   string
	Access Access
}

var routes = []Route{
	{Name: Home, Path: "/", Access: Public},
	{Name: Todo, Path: "/todo", Access: Protected},
	{Name: About, Path: "/about", Access: Public},
	{Name: Login, Path: "/login", Access: VisitorOnly},
	{Name: Register, Path: "/register", Access: VisitorOnly},
	{Name: Todos, Path: "/todos/{id}", Access: Public},
}

// All returns the route table in declaration order.
func All() []Route {
	out := make([]Route, len(routes))
	copy(out, routes)
	return out
}

func Lookup(name string) (Route, bool) {
	for _, r := range routes {
		if r.Name == name {
			return r, true
		}
	}
	return Route{}, false
}

// Guard returns the route to redirect to, or "" when navigation to name is
// allowed. Unknown names are allowed.
func Guard(name string, loggedIn bool) string {
	r, ok := Lookup(name)
	if !ok {
		return ""
	}
	switch {
	case r.Access == Protected && !loggedIn:
		return Login
	case r.Access == VisitorOnly && loggedIn:
		return Todo
	}
	return ""
}

// RedirectError is returned when a guarded command is refused.
type RedirectError struct {
	From string
	To   string
}

func (e *RedirectError) Error() string {
	switch e.To {
	case Login:
		return fmt.Sprintf("%s requires a session: run 'todos login' first", e.From)
	case Todo:
		return fmt.Sprintf("%s is not available while logged in: run 'todos logout' first", e.From)
	}
	return fmt.Sprintf("%s: redirected to %s", e.From, e.To)
}

// Check wraps Guard in an error.
func Check(name string, loggedIn bool) error {
	if to := Guard(name, loggedIn); to != "" {
		return &RedirectError{From: name, To: to}
	}
	return nil
}
