package storage

import (
	"testing"

	"deptrack/pkg/types"

	"github.com/stretchr/testify/assert"
)

func TestKey_MavenLayout(t *testing.T) {
	c := types.Coordinates{GroupID: "org.openmrs.module", ArtifactID: "legacyui", Version: "1.8.0-SNAPSHOT"}

	assert.Equal(t,
		"org/openmrs/module/legacyui/1.8.0-SNAPSHOT/legacyui-1.8.0-SNAPSHOT-dependencies.txt",
		Key(c, types.Classifier, types.Extension))
	assert.Equal(t,
		"org/openmrs/module/legacyui/1.8.0-SNAPSHOT/legacyui-1.8.0-SNAPSHOT.pom",
		Key(c, "", "pom"))
}
