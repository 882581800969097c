// Package controller turns class tree intents (add, remove, rename, move)
// into codec patches against the host's live document.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/agentic-research/classnav/internal/classtree"
	"github.com/agentic-research/classnav/internal/host"
)

var (
	ErrNoActiveDocument = errors.New("no active document")
	ErrNotHTML          = errors.New("active document is not HTML")
	ErrEmptyName        = errors.New("class name must not be empty")
	ErrInvalidNode      = errors.New("node does not name a class")
)

// Placeholder messages shown instead of a tree.
const (
	MsgSelectHTML  = "Open an HTML file to see its classes"
	MsgPlaceCursor = "Place the cursor inside a class attribute"
)

// Validator checks a document edit before it is applied.
type Validator func(before, after []byte) error

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. Defaults to logrus' standard logger.
func WithLogger(l *logrus.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithDevices replaces the built-in device descriptor table.
func WithDevices(d classtree.Devices) Option {
	return func(c *Controller) { c.devices = d }
}

// WithValidator rejects patches the validator refuses.
func WithValidator(v Validator) Option {
	return func(c *Controller) { c.validate = v }
}

// Controller derives the class forest from the host and applies mutations.
// Mutations are serialized; reads are not, since every read re-derives the
// forest from the host's current text.
type Controller struct {
	host     host.Host
	devices  classtree.Devices
	validate Validator
	log      *logrus.Logger

	mu sync.Mutex // one read-compute-apply cycle at a time

	listenersMu sync.Mutex
	listeners   []func()
}

// New returns a controller for h.
func New(h host.Host, opts ...Option) *Controller {
	c := &Controller{
		host:    h,
		devices: classtree.DefaultDevices(),
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Devices returns the descriptor table used for decoration and sorting.
func (c *Controller) Devices() classtree.Devices { return c.devices }

// OnTreeInvalidated registers fn to run after every successful mutation and
// every DocumentChanged call.
func (c *Controller) OnTreeInvalidated(fn func()) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// DocumentChanged tells the controller the host text changed underneath it.
func (c *Controller) DocumentChanged() {
	c.notify()
}

func (c *Controller) notify() {
	c.listenersMu.Lock()
	fns := append([]func(){}, c.listeners...)
	c.listenersMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Resolve locates the class attribute at the cursor and parses it.
func (c *Controller) Resolve() (classtree.Forest, error) {
	attr, err := c.Attribute()
	if err != nil {
		return nil, err
	}
	return classtree.Parse(attr.Text, c.devices), nil
}

// Attribute returns the class attribute under the cursor.
func (c *Controller) Attribute() (classtree.Attribute, error) {
	text, err := c.document()
	if err != nil {
		return classtree.Attribute{}, err
	}
	cursor, ok := c.host.CursorOffset()
	if !ok {
		return classtree.Attribute{}, classtree.ErrNotInClassAttribute
	}
	attr, ok := classtree.Locate(text, cursor)
	if !ok {
		return classtree.Attribute{}, classtree.ErrNotInClassAttribute
	}
	return attr, nil
}

// RootNodes returns the forest at the cursor, or a single placeholder node
// explaining why there is none. It never fails.
func (c *Controller) RootNodes() classtree.Forest {
	forest, err := c.Resolve()
	if err != nil {
		return classtree.Placeholder(Message(err))
	}
	return forest
}

// Children returns n's children in display order.
func (c *Controller) Children(n *classtree.Node) []*classtree.Node {
	if n == nil {
		return nil
	}
	return n.Children
}

// Message is the user-facing text for a Resolve error.
func Message(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoActiveDocument), errors.Is(err, ErrNotHTML):
		return MsgSelectHTML
	case errors.Is(err, classtree.ErrNotInClassAttribute):
		return MsgPlaceCursor
	default:
		return err.Error()
	}
}

// ValidateName trims name and rejects it when nothing is left.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	return name, nil
}

// NameHint adapts ValidateName for prompts: it returns the message to show
// while input is unacceptable.
func NameHint(input string) string {
	if _, err := ValidateName(input); err != nil {
		return "Class name must not be empty"
	}
	return ""
}

// AddRootClass appends name to the class attribute at the cursor.
func (c *Controller) AddRootClass(ctx context.Context, name string) error {
	name, err := ValidateName(name)
	if err != nil {
		return err
	}
	return c.mutate(ctx, "add", logrus.Fields{"new_path": name}, func(text string, cursor int) (classtree.Patch, error) {
		return classtree.InsertToken(text, cursor, name)
	})
}

// AddChildClass adds name below parent in the class attribute at the cursor.
func (c *Controller) AddChildClass(ctx context.Context, parent *classtree.Node, name string) error {
	if err := checkNode(parent); err != nil {
		return err
	}
	name, err := ValidateName(name)
	if err != nil {
		return err
	}
	fields := logrus.Fields{"path": parent.Path, "new_path": classtree.JoinPath(parent.Path, name)}
	return c.mutate(ctx, "add_child", fields, func(text string, cursor int) (classtree.Patch, error) {
		return classtree.InsertSubToken(text, cursor, parent.Path, name)
	})
}

// RemoveClass drops every token at the cursor whose final segment is n's name.
func (c *Controller) RemoveClass(ctx context.Context, n *classtree.Node) error {
	if err := checkNode(n); err != nil {
		return err
	}
	return c.mutate(ctx, "remove", logrus.Fields{"path": n.Path}, func(text string, cursor int) (classtree.Patch, error) {
		return classtree.RemoveToken(text, cursor, n.Name)
	})
}

// RenameClass replaces the final segment of n's path with newName across
// the document, carrying n's subtree along.
func (c *Controller) RenameClass(ctx context.Context, n *classtree.Node, newName string) error {
	if err := checkNode(n); err != nil {
		return err
	}
	newName, err := ValidateName(newName)
	if err != nil {
		return err
	}
	return c.rewrite(ctx, "rename", n.Path, classtree.RenamedPath(n.Path, newName))
}

// MoveClass reparents n under newParent. A nil newParent (or one with an
// empty path) moves n to the root.
func (c *Controller) MoveClass(ctx context.Context, n, newParent *classtree.Node) error {
	if err := checkNode(n); err != nil {
		return err
	}
	target := ""
	if newParent != nil {
		if newParent.Placeholder {
			return ErrInvalidNode
		}
		target = newParent.Path
	}
	if err := classtree.ValidateMove(n.Path, target); err != nil {
		c.log.WithError(err).WithFields(logrus.Fields{"op": "move", "path": n.Path, "target": target}).Warn("move rejected")
		return err
	}
	newPath := classtree.MovedPath(n.Path, target)
	if newPath == n.Path {
		c.log.WithFields(logrus.Fields{"op": "move", "path": n.Path}).Debug("move leaves path unchanged")
		return nil
	}
	return c.rewrite(ctx, "move", n.Path, newPath)
}

// MoveToRoot lifts n, with its subtree, to the root of the forest.
func (c *Controller) MoveToRoot(ctx context.Context, n *classtree.Node) error {
	return c.MoveClass(ctx, n, nil)
}

func (c *Controller) rewrite(ctx context.Context, op, oldPath, newPath string) error {
	fields := logrus.Fields{"path": oldPath, "new_path": newPath}
	return c.mutate(ctx, op, fields, func(text string, _ int) (classtree.Patch, error) {
		return classtree.RewritePath(text, oldPath, newPath)
	})
}

// mutate runs one read-compute-validate-apply cycle against fresh text and
// notifies listeners when the host accepted the patch.
func (c *Controller) mutate(ctx context.Context, op string, fields logrus.Fields, compute func(text string, cursor int) (classtree.Patch, error)) error {
	entry := c.log.WithFields(fields).WithField("op", op)
	if err := c.apply(ctx, compute); err != nil {
		entry.WithError(err).Warn("class edit failed")
		return err
	}
	entry.Info("class edit applied")
	c.notify()
	return nil
}

func (c *Controller) apply(ctx context.Context, compute func(text string, cursor int) (classtree.Patch, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	text, err := c.document()
	if err != nil {
		return err
	}
	cursor, ok := c.host.CursorOffset()
	if !ok {
		cursor = -1
	}
	patch, err := compute(text, cursor)
	if err != nil {
		return err
	}
	if c.validate != nil {
		if err := c.validate([]byte(text), []byte(patch.Apply(text))); err != nil {
			return fmt.Errorf("validate edit: %w", err)
		}
	}
	if err := c.host.Apply(ctx, patch); err != nil {
		return fmt.Errorf("apply edit: %w", err)
	}
	return nil
}

func (c *Controller) document() (string, error) {
	text, ok := c.host.ActiveText()
	if !ok {
		return "", ErrNoActiveDocument
	}
	if c.host.Language() != host.LanguageHTML {
		return "", ErrNotHTML
	}
	return text, nil
}

func checkNode(n *classtree.Node) error {
	if n == nil || n.Placeholder || n.Path == "" {
		return ErrInvalidNode
	}
	return nil
}
