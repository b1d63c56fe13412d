package policy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/walletkit/pluginhost/domain/entities"
	"github.com/walletkit/pluginhost/domain/policy"
)

func grants(caps ...entities.Capability) *entities.GrantSet {
	return &entities.GrantSet{Grants: caps}
}

func TestPolicy_Check_ExactMatch(t *testing.T) {
	p := policy.NewPolicy(policy.WithDenialHandler(&policy.NopDenialHandler{}))
	g := grants(entities.NewCapability("state", "cache"))

	assert.True(t, p.Check("state", "cache", g))
	assert.False(t, p.Check("state", "other", g))
	assert.False(t, p.Check("entities", "cache", g))
}

func TestPolicy_Check_GlobPattern(t *testing.T) {
	p := policy.NewPolicy(policy.WithDenialHandler(&policy.NopDenialHandler{}))
	g := grants(entities.NewCapability("state", "wallet:*"))

	assert.True(t, p.Check("state", "wallet:balance", g))
	assert.True(t, p.Check("state", "wallet:nonce", g))
	assert.False(t, p.Check("state", "other:balance", g))
}

func TestPolicy_Check_Wildcard(t *testing.T) {
	p := policy.NewPolicy(policy.WithDenialHandler(&policy.NopDenialHandler{}))
	g := grants(entities.CapabilityAllState)

	assert.True(t, p.Check("state", "anything", g))
	assert.True(t, p.Check("state", "nested/key", g))
}

func TestPolicy_Check_EmptyGrants(t *testing.T) {
	p := policy.NewPolicy(policy.WithDenialHandler(&policy.NopDenialHandler{}))
	assert.False(t, p.Check("state", "cache", &entities.GrantSet{}))
	assert.False(t, p.Check("state", "cache", nil))
}

func TestPolicy_Check_MultipleGrants(t *testing.T) {
	p := policy.NewPolicy(policy.WithDenialHandler(&policy.NopDenialHandler{}))
	g := grants(
		entities.NewCapability("state", "a"),
		entities.NewCapability("entities", "register"),
	)

	assert.True(t, p.Check("state", "a", g))
	assert.True(t, p.Check("entities", "register", g))
	assert.False(t, p.Check("routing", "resolve", g))
}

func TestPolicy_Check_InvalidPatternIgnored(t *testing.T) {
	p := policy.NewPolicy(policy.WithDenialHandler(&policy.NopDenialHandler{}))
	g := grants(entities.NewCapability("state", "["))

	assert.False(t, p.Check("state", "[", g))
}

func TestPolicy_Check_DenialHandlerInvoked(t *testing.T) {
	var gotService, gotKey string
	handler := denialRecorder(func(service, key, reason string) {
		gotService, gotKey = service, key
	})
	p := policy.NewPolicy(policy.WithDenialHandler(handler))

	p.Check("state", "secret", grants())

	assert.Equal(t, "state", gotService)
	assert.Equal(t, "secret", gotKey)
}

type denialRecorder func(service, key, reason string)

func (f denialRecorder) OnDenial(service, key, reason string) { f(service, key, reason) }
