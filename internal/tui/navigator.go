package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Navigator routes api navigation requests into the running program. It is
// created before the program exists, so Attach must be called once the
// program is built; until then navigation is dropped.
type Navigator struct {
	mu      sync.Mutex
	program *tea.Program
}

func NewNavigator() *Navigator {
	return &Navigator{}
}

// Attach binds the navigator to p.
func (n *Navigator) Attach(p *tea.Program) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.program = p
}

// Navigate implements api.Navigator. It is called from request goroutines.
func (n *Navigator) Navigate(route string) {
	n.mu.Lock()
	p := n.program
	n.mu.Unlock()
	if p != nil {
		p.Send(navigateMsg{route: route})
	}
}
