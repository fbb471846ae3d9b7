package publish

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/daemonless/dbuild/src/config"
)

func TestArchSuffix(t *testing.T) {
	assert.Equal(t, "", ArchSuffix("amd64"))
	assert.Equal(t, "-aarch64", ArchSuffix("aarch64"))
	assert.Equal(t, "-riscv64", ArchSuffix("riscv64"))
}

func TestVersionTag(t *testing.T) {
	assert.Equal(t, "5.27.5", VersionTag("5.27.5", "latest"))
	assert.Equal(t, "5.27.5", VersionTag("v5.27.5", "latest"))
	assert.Equal(t, "5.27.5-pkg", VersionTag("5.27.5", "pkg"))
	// Non-semver versions pass through untouched.
	assert.Equal(t, "14.2-RELEASE-p3", VersionTag("14.2-RELEASE-p3", "latest"))
	// Partial versions normalize.
	assert.Equal(t, "1.2.0", VersionTag("v1.2", "latest"))
}

func TestCollectTags(t *testing.T) {
	v := config.Variant{Tag: "latest", Aliases: []string{"stable"}}

	tags := CollectTags(v, "amd64", "5.27.5")
	assert.Equal(t, []string{"latest", "stable", "5.27.5"}, tags)
}

func TestCollectTagsArchSuffixed(t *testing.T) {
	v := config.Variant{Tag: "latest", Aliases: []string{"stable"}}

	tags := CollectTags(v, "aarch64", "5.27.5")
	assert.Equal(t, []string{"latest-aarch64", "stable-aarch64", "5.27.5-aarch64"}, tags)
}

func TestCollectTagsNoVersion(t *testing.T) {
	v := config.Variant{Tag: "pkg"}

	tags := CollectTags(v, "amd64", "")
	assert.Equal(t, []string{"pkg"}, tags)
}

func TestCollectTagsDeduplicates(t *testing.T) {
	v := config.Variant{Tag: "latest", Aliases: []string{"latest"}}

	tags := CollectTags(v, "amd64", "")
	assert.Equal(t, []string{"latest"}, tags)
}

func TestCollectTagsVariantVersionTag(t *testing.T) {
	v := config.Variant{Tag: "pkg"}

	tags := CollectTags(v, "amd64", "5.27.5")
	assert.Equal(t, []string{"pkg", "5.27.5-pkg"}, tags)
}
