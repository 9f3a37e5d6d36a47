package history

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rivo/uniseg"
)

// ErrNilReceiver is returned when a command is built without an object or
// a resolver.
var ErrNilReceiver = errors.New("command receiver is nil")

// Command represents a reversible edit.
type Command interface {
	// Execute applies the command and returns an error if it fails.
	Execute() error

	// Undo reverses the command and returns an error if it fails.
	Undo() error

	// Description returns a human-readable description of the command.
	Description() string
}

// PropertyCommand records one edit to a single object's tracked properties.
// It is never mutated after construction.
type PropertyCommand struct {
	id        string
	resolver  Resolver
	props     []string
	state     PropertySnapshot
	prevState PropertySnapshot
}

// NewPropertyCommand creates a command for an edit that has just completed
// on obj. prev must hold the tracked values read before the edit; keys
// outside props are dropped. The post-edit values are read now.
func NewPropertyCommand(res Resolver, obj TrackedObject, prev PropertySnapshot, props []string) (*PropertyCommand, error) {
	if obj == nil || res == nil {
		return nil, ErrNilReceiver
	}
	props = append([]string(nil), props...)
	return &PropertyCommand{
		id:        obj.ID(),
		resolver:  res,
		props:     props,
		state:     TakeSnapshot(obj, props),
		prevState: prev.subset(props),
	}, nil
}

// ObjectID returns the id of the object the command applies to.
func (c *PropertyCommand) ObjectID() string {
	return c.id
}

// State returns a copy of the post-edit values.
func (c *PropertyCommand) State() PropertySnapshot {
	return c.state.Clone()
}

// PrevState returns a copy of the pre-edit values.
func (c *PropertyCommand) PrevState() PropertySnapshot {
	return c.prevState.Clone()
}

// Properties returns the tracked property names of the command.
func (c *PropertyCommand) Properties() []string {
	return append([]string(nil), c.props...)
}

// IsNoop reports whether the edit changed nothing.
func (c *PropertyCommand) IsNoop() bool {
	return len(c.state.Changed(c.prevState)) == 0
}

// Execute writes the post-edit values onto the receiver.
func (c *PropertyCommand) Execute() error {
	c.restore(c.state)
	return nil
}

// Undo writes the pre-edit values onto the receiver.
func (c *PropertyCommand) Undo() error {
	c.restore(c.prevState)
	return nil
}

// restore applies a snapshot when the receiver is still in the scene.
func (c *PropertyCommand) restore(s PropertySnapshot) {
	obj, ok := c.resolver.Lookup(c.id)
	if !ok || obj == nil {
		return
	}
	s.applyTo(obj, c.props)
	obj.SetCoords()
}

// Description returns a human-readable description.
func (c *PropertyCommand) Description() string {
	changed := c.state.Changed(c.prevState)
	switch {
	case len(changed) == 0:
		return "No change"
	case onlyProps(changed, PropLeft, PropTop):
		return "Move"
	case onlyProps(changed, PropScaleX, PropScaleY, PropLeft, PropTop):
		return "Scale"
	case onlyProps(changed, PropAngle, PropLeft, PropTop):
		return "Rotate"
	case onlyProps(changed, PropFlipX, PropFlipY):
		return "Flip"
	case onlyProps(changed, PropText, PropWidth, PropHeight):
		if s, ok := c.state[PropText].(string); ok {
			n := uniseg.GraphemeClusterCount(s)
			if n <= 20 {
				return fmt.Sprintf("Edit text %q", s)
			}
			return fmt.Sprintf("Edit text (%d characters)", n)
		}
		return "Edit text"
	case len(changed) == 1:
		return "Set " + changed[0]
	default:
		return fmt.Sprintf("Modify %s", strings.Join(changed, ", "))
	}
}

func onlyProps(changed []string, allowed ...string) bool {
	for _, c := range changed {
		found := false
		for _, a := range allowed {
			if c == a {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// CompoundCommand groups multiple commands as one undo unit.
type CompoundCommand struct {
	Name     string
	Commands []Command
}

// NewCompoundCommand creates a new compound command.
func NewCompoundCommand(name string, commands ...Command) *CompoundCommand {
	return &CompoundCommand{
		Name:     name,
		Commands: commands,
	}
}

// Execute runs all commands in order.
func (c *CompoundCommand) Execute() error {
	for i, cmd := range c.Commands {
		if err := cmd.Execute(); err != nil {
			// On error, try to undo what we've done
			for j := i - 1; j >= 0; j-- {
				_ = c.Commands[j].Undo()
			}
			return fmt.Errorf("compound command '%s' step %d: %w", c.Name, i, err)
		}
	}
	return nil
}

// Undo reverses all commands in reverse order.
func (c *CompoundCommand) Undo() error {
	for i := len(c.Commands) - 1; i >= 0; i-- {
		if err := c.Commands[i].Undo(); err != nil {
			return fmt.Errorf("undo compound command '%s' step %d: %w", c.Name, i, err)
		}
	}
	return nil
}

// Description returns the compound command's name.
func (c *CompoundCommand) Description() string {
	if c.Name != "" {
		return c.Name
	}
	if len(c.Commands) == 1 {
		return c.Commands[0].Description()
	}
	return fmt.Sprintf("%d operations", len(c.Commands))
}

// Add adds a command to the compound command.
func (c *CompoundCommand) Add(cmd Command) {
	c.Commands = append(c.Commands, cmd)
}

// IsEmpty returns true if the compound command has no commands.
func (c *CompoundCommand) IsEmpty() bool {
	return len(c.Commands) == 0
}
