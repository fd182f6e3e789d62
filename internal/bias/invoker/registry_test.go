package invoker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biasmeter/internal/bias/invoker/backends"
)

func TestDefaultCatalog(t *testing.T) {
	reg, err := NewRegistry(DefaultCatalog()...)
	require.NoError(t, err)

	all := reg.All()
	require.NotEmpty(t, all)
	assert.Equal(t, "gpt-4o-mini", all[0].ID)

	for _, family := range backends.Families {
		spec, ok := reg.FamilyDefault(family)
		require.True(t, ok, "family %s has no default", family)
		assert.Equal(t, DefaultCredentialRef(family), spec.CredentialRef)
	}

	haiku, ok := reg.Get("claude-haiku")
	require.True(t, ok)
	assert.Equal(t, "claude-haiku-4-5-20251001", haiku.Model)
}

func TestNewRegistry(t *testing.T) {
	tests := []struct {
		name    string
		specs   []BackendSpec
		wantErr string
	}{
		{
			name:    "duplicate id",
			specs:   []BackendSpec{{ID: "a", Family: backends.FamilyOpenAI, Model: "m"}, {ID: "a", Family: backends.FamilyGemini, Model: "m"}},
			wantErr: "already registered",
		},
		{
			name:    "missing id",
			specs:   []BackendSpec{{Family: backends.FamilyOpenAI, Model: "m"}},
			wantErr: "id is required",
		},
		{
			name:    "unknown family",
			specs:   []BackendSpec{{ID: "a", Family: "mistral", Model: "m"}},
			wantErr: "unknown backend family",
		},
		{
			name:    "missing model",
			specs:   []BackendSpec{{ID: "a", Family: backends.FamilyOpenAI}},
			wantErr: "model is required",
		},
		{
			name: "two family defaults",
			specs: []BackendSpec{
				{ID: "a", Family: backends.FamilyOpenAI, Model: "m", FamilyDefault: true},
				{ID: "b", Family: backends.FamilyOpenAI, Model: "m", FamilyDefault: true},
			},
			wantErr: "already defaults to a",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.specs...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRegistryFamilyDefaultFallsBackToFirst(t *testing.T) {
	reg, err := NewRegistry(
		BackendSpec{ID: "a", Family: backends.FamilyGemini, Model: "m1"},
		BackendSpec{ID: "b", Family: backends.FamilyGemini, Model: "m2"},
		BackendSpec{ID: "c", Family: backends.FamilyOpenAI, Model: "m3", CredentialRef: "CUSTOM_KEY"},
	)
	require.NoError(t, err)

	spec, ok := reg.FamilyDefault(backends.FamilyGemini)
	require.True(t, ok)
	assert.Equal(t, "a", spec.ID)

	c, _ := reg.Get("c")
	assert.Equal(t, "CUSTOM_KEY", c.CredentialRef)

	_, ok = reg.FamilyDefault(backends.FamilyAnthropic)
	assert.False(t, ok)
}

func TestMergeCatalog(t *testing.T) {
	gpt5 := BackendSpec{ID: "gpt-5", Family: backends.FamilyOpenAI, Model: "gpt-5", FamilyDefault: true}

	t.Run("extra family default replaces the catalog default", func(t *testing.T) {
		reg, err := NewRegistry(MergeCatalog(DefaultCatalog(), gpt5)...)
		require.NoError(t, err)

		spec, ok := reg.FamilyDefault(backends.FamilyOpenAI)
		require.True(t, ok)
		assert.Equal(t, "gpt-5", spec.ID)

		mini, _ := reg.Get("gpt-4o-mini")
		assert.False(t, mini.FamilyDefault)

		haiku, ok := reg.FamilyDefault(backends.FamilyAnthropic)
		require.True(t, ok)
		assert.Equal(t, "claude-haiku", haiku.ID)
	})

	t.Run("extra without default keeps the catalog default", func(t *testing.T) {
		plain := BackendSpec{ID: "gpt-5", Family: backends.FamilyOpenAI, Model: "gpt-5"}
		reg, err := NewRegistry(MergeCatalog(DefaultCatalog(), plain)...)
		require.NoError(t, err)

		spec, _ := reg.FamilyDefault(backends.FamilyOpenAI)
		assert.Equal(t, "gpt-4o-mini", spec.ID)
	})

	t.Run("base catalog is not modified", func(t *testing.T) {
		base := DefaultCatalog()
		_ = MergeCatalog(base, gpt5)
		assert.True(t, base[0].FamilyDefault)
	})

	t.Run("two extras claiming one family still conflict", func(t *testing.T) {
		other := BackendSpec{ID: "gpt-5-pro", Family: backends.FamilyOpenAI, Model: "gpt-5-pro", FamilyDefault: true}
		_, err := NewRegistry(MergeCatalog(DefaultCatalog(), gpt5, other)...)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already defaults to gpt-5")
	})
}

func TestCredentialsHas(t *testing.T) {
	creds := Credentials{"A": "x", "B": " "}
	assert.True(t, creds.Has("A"))
	assert.False(t, creds.Has("B"))
	assert.False(t, creds.Has("C"))
	assert.False(t, Credentials(nil).Has("A"))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héll", truncateRunes("héllo", 4))
	assert.Equal(t, "héllo", truncateRunes("héllo", 5))
	assert.Equal(t, "héllo", truncateRunes("héllo", 0))
}
