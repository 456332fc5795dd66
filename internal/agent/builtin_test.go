// ABOUTME: Tests for the Completer-backed builtin agent and its factory.
// ABOUTME: Covers unknown types, fragment streaming, and release idempotence.

package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFactory_UnknownType(t *testing.T) {
	factory := NewFactory([]Type{"analytical"}, &StaticCompleter{}, nil)

	_, err := factory("nonsense")
	assert.ErrorIs(t, err, ErrUnknownAgentType)

	a, err := factory("analytical")
	require.NoError(t, err)
	assert.NotNil(t, a)
}

func TestBuiltin_StreamsFragments(t *testing.T) {
	completer := &StaticCompleter{Responses: map[Type]string{
		"creative": "roses are red",
	}}
	factory := NewFactory([]Type{"creative"}, completer, nil)
	a, err := factory("creative")
	require.NoError(t, err)

	var fragments []string
	resp, err := a.Process(context.Background(), "write a poem", "s1", func(f string) {
		fragments = append(fragments, f)
	})
	require.NoError(t, err)
	assert.Equal(t, "roses are red", resp.Text)
	assert.Equal(t, Type("creative"), resp.AgentType)
	assert.Equal(t, []string{"roses ", "are ", "red "}, fragments)
}

func TestBuiltin_NilFragmentFunc(t *testing.T) {
	factory := NewFactory([]Type{"analytical"}, &StaticCompleter{}, nil)
	a, err := factory("analytical")
	require.NoError(t, err)

	resp, err := a.Process(context.Background(), "analyze", "s1", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Text)
}

func TestBuiltin_CancelledContext(t *testing.T) {
	completer := &StaticCompleter{Responses: map[Type]string{
		"creative": "one two three",
	}}
	factory := NewFactory([]Type{"creative"}, completer, nil)
	a, err := factory("creative")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.Process(ctx, "go", "s1", func(string) {})
	assert.ErrorIs(t, err, context.Canceled)
}

type failingCompleter struct{ err error }

func (f *failingCompleter) Complete(context.Context, Type, string, string) (string, error) {
	return "", f.err
}

func TestBuiltin_CompleterError(t *testing.T) {
	boom := errors.New("provider unreachable")
	factory := NewFactory([]Type{"technical"}, &failingCompleter{err: boom}, nil)
	a, err := factory("technical")
	require.NoError(t, err)

	_, err = a.Process(context.Background(), "debug", "s1", nil)
	assert.ErrorIs(t, err, boom)
}

func TestBuiltin_ReleaseIdempotent(t *testing.T) {
	factory := NewFactory([]Type{"analytical"}, &StaticCompleter{}, nil)
	a, err := factory("analytical")
	require.NoError(t, err)

	a.Release()
	a.Release() // must not panic
}
