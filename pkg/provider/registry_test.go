package provider_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yapay-ai/spendwatch/pkg/model"
	"github.com/yapay-ai/spendwatch/pkg/provider"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := provider.NewRegistry()

	err := r.Register(provider.NewOpenAI("", nil))
	require.NoError(t, err)

	got, err := r.Get(model.ProviderOpenAI)
	require.NoError(t, err)
	assert.Equal(t, model.ProviderOpenAI, got.Name())
}

func TestRegistry_DuplicateRegister(t *testing.T) {
	r := provider.NewRegistry()

	err := r.Register(provider.NewOpenAI("", nil))
	require.NoError(t, err)

	err = r.Register(provider.NewOpenAI("", nil))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistry_GetNotFound(t *testing.T) {
	r := provider.NewRegistry()
	_, err := r.Get(model.ProviderType("nonexistent"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRegistry_List(t *testing.T) {
	r := provider.NewRegistry()
	_ = r.Register(provider.NewOpenAI("", nil))
	_ = r.Register(provider.NewAnthropic("", nil))
	_ = r.Register(provider.NewOpenRouter("", nil))

	names := r.List()
	assert.Len(t, names, 3)
	assert.Contains(t, names, model.ProviderOpenAI)
	assert.Contains(t, names, model.ProviderAnthropic)
	assert.Contains(t, names, model.ProviderOpenRouter)
}
