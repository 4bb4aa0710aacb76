package jarpatch

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClass records the edits applied to it.
type fakeClass struct {
	name     string
	methods  []string
	added    []MethodSpec
	inserted map[string][]Statement
	written  []string

	insertErr error
	writeErr  error
}

func (c *fakeClass) Name() string                       { return c.name }
func (c *fakeClass) HasDeclaredMethod(name string) bool { return slices.Contains(c.methods, name) }
func (c *fakeClass) DeclaredMethods() []string          { return c.methods }

func (c *fakeClass) AddMethod(spec MethodSpec) error {
	c.added = append(c.added, spec)
	c.methods = append(c.methods, spec.Name)
	return nil
}

func (c *fakeClass) InsertBefore(method string, stmt Statement) error {
	if c.insertErr != nil {
		return c.insertErr
	}
	if !c.HasDeclaredMethod(method) {
		return fmt.Errorf("%w: %s", ErrMethodNotFound, method)
	}
	if c.inserted == nil {
		c.inserted = make(map[string][]Statement)
	}
	c.inserted[method] = append(c.inserted[method], stmt)
	return nil
}

func (c *fakeClass) WriteFile(dir string) error {
	if c.writeErr != nil {
		return c.writeErr
	}
	c.written = append(c.written, dir)
	return nil
}

type fakePool struct {
	classes map[string]*fakeClass
}

func (p *fakePool) InsertClassPath(string) error { return nil }

func (p *fakePool) Get(name string) (Class, error) {
	c, ok := p.classes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClassNotFound, name)
	}
	return c, nil
}

func poolOf(c *fakeClass) *fakePool {
	return &fakePool{classes: map[string]*fakeClass{c.name: c}}
}

func TestPatcherStates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		methods     []string
		wantAdded   bool
		wantTarget  string
		wantMessage string
		wantMethods []string
	}{
		{
			name:        "no main no init",
			methods:     []string{"run"},
			wantAdded:   true,
			wantTarget:  "main",
			wantMessage: MainInjectedMessage,
			wantMethods: []string{"run", "main"},
		},
		{
			name:        "init only",
			methods:     []string{"init"},
			wantAdded:   true,
			wantTarget:  "init",
			wantMessage: InitInjectedMessage,
			wantMethods: []string{"init", "main"},
		},
		{
			name:        "main only",
			methods:     []string{"main"},
			wantTarget:  "main",
			wantMessage: MainInjectedMessage,
			wantMethods: []string{"main"},
		},
		{
			name:        "both",
			methods:     []string{"main", "init"},
			wantTarget:  "init",
			wantMessage: InitInjectedMessage,
			wantMethods: []string{"main", "init"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cls := &fakeClass{name: "com.example.App", methods: slices.Clone(tt.methods)}
			res, err := (&Patcher{}).Patch(poolOf(cls), "com.example.App", "/work")
			require.NoError(t, err)

			assert.Equal(t, "com.example.App", res.Class)
			assert.Equal(t, tt.wantAdded, res.Plan.AddMain)
			assert.Equal(t, tt.wantTarget, res.Plan.Target)
			assert.Equal(t, tt.wantMethods, cls.methods)
			if tt.wantAdded {
				require.Len(t, cls.added, 1)
				assert.Equal(t, MainMethod(), cls.added[0])
			} else {
				assert.Empty(t, cls.added)
			}
			assert.Equal(t, map[string][]Statement{tt.wantTarget: {Println(tt.wantMessage)}}, cls.inserted)
			assert.Equal(t, []string{"/work"}, cls.written)
		})
	}
}

func TestPatcherErrors(t *testing.T) {
	t.Parallel()

	t.Run("class not found", func(t *testing.T) {
		t.Parallel()
		_, err := (&Patcher{}).Patch(&fakePool{}, "missing.Cls", "/work")
		require.ErrorIs(t, err, ErrClassNotFound)
	})

	t.Run("insert fails", func(t *testing.T) {
		t.Parallel()
		cls := &fakeClass{name: "A", methods: []string{"init"}, insertErr: ErrMethodNotFound}
		_, err := (&Patcher{}).Patch(poolOf(cls), "A", "/work")
		require.ErrorIs(t, err, ErrMethodNotFound)
		assert.Empty(t, cls.written, "failed classes must not be written")
	})

	t.Run("write fails", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("disk full")
		cls := &fakeClass{name: "A", methods: []string{"main"}, writeErr: boom}
		_, err := (&Patcher{}).Patch(poolOf(cls), "A", "/work")
		require.ErrorIs(t, err, boom)
	})
}
