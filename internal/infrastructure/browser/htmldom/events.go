package htmldom

import "golang.org/x/net/html"

type Event struct {
	Type    string
	Bubbles bool
	Key     string
	Code    string
	KeyCode int
	State   map[string]any

	Target           *html.Node
	CurrentTarget    *html.Node
	DefaultPrevented bool
	stopped          bool
}

func (e *Event) PreventDefault()  { e.DefaultPrevented = true }
func (e *Event) StopPropagation() { e.stopped = true }

type Listener func(ev *Event)

func (d *Document) AddEventListener(n *html.Node, typ string, fn Listener) {
	byType, ok := d.listeners[n]
	if !ok {
		byType = make(map[string][]Listener)
		d.listeners[n] = byType
	}
	byType[typ] = append(byType[typ], fn)
}

// AddWindowListener registers a listener on the window object, which is
// where popstate is fired and where bubbling events end up.
func (d *Document) AddWindowListener(typ string, fn Listener) {
	d.window[typ] = append(d.window[typ], fn)
}

// Dispatch fires ev at target. Bubbling events walk every ancestor and then
// the window.
func (d *Document) Dispatch(target *html.Node, ev Event) *Event {
	ev.Target = target
	e := &ev

	for n := target; n != nil; n = n.Parent {
		e.CurrentTarget = n
		for _, fn := range d.listeners[n][ev.Type] {
			fn(e)
		}
		if !ev.Bubbles || e.stopped {
			return e
		}
	}

	e.CurrentTarget = nil
	for _, fn := range d.window[ev.Type] {
		fn(e)
	}
	return e
}

// DispatchWindow fires an event on the window only.
func (d *Document) DispatchWindow(ev Event) *Event {
	e := &ev
	for _, fn := range d.window[ev.Type] {
		fn(e)
	}
	return e
}
