package container

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeComponent struct {
	name     string
	startErr error
	log      *[]string
}

func (f *fakeComponent) Name() string { return f.name }

func (f *fakeComponent) Start(context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	*f.log = append(*f.log, "start "+f.name)
	return nil
}

func (f *fakeComponent) Stop() error {
	*f.log = append(*f.log, "stop "+f.name)
	return nil
}

func (f *fakeComponent) Health() error { return f.startErr }

func TestLifecycleOrder(t *testing.T) {
	var log []string
	m := NewLifecycleManager()
	m.Register(&fakeComponent{name: "a", log: &log})
	m.Register(&fakeComponent{name: "b", log: &log})

	require.NoError(t, m.StartAll(context.Background()))
	require.NoError(t, m.CheckHealth())
	require.NoError(t, m.StopAll())
	assert.Equal(t, []string{"start a", "start b", "stop b", "stop a"}, log)
}

func TestLifecycleRollback(t *testing.T) {
	var log []string
	m := NewLifecycleManager()
	m.Register(&fakeComponent{name: "a", log: &log})
	m.Register(&fakeComponent{name: "b", log: &log, startErr: errors.New("boom")})

	err := m.StartAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start b")
	assert.Equal(t, []string{"start a", "stop a"}, log)
	assert.Error(t, m.CheckHealth())
}
