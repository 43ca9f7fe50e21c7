package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleClassificationYAML = `
rules:
  - model_contains: CXNv2
    role: streamer
    adapter: cxnv2
  - model_contains: Edge NQ
    role: streamer
    adapter: streammagic
  - model_contains: Asset
    role: media_server
    adapter: asset
  - model_contains: H390
    role: amplifier
    adapter: hegel
`

func TestLoadClassificationTableEmptyPath(t *testing.T) {
	table, err := LoadClassificationTable("")
	require.NoError(t, err)
	require.Empty(t, table.Rules)
}

func TestClassifyByModelName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "classification.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleClassificationYAML), 0o644))

	table, err := LoadClassificationTable(path)
	require.NoError(t, err)
	require.Len(t, table.Rules, 4)

	role, adapter, matched := table.Classify(&DeviceDescription{ModelName: "CXNv2"})
	require.True(t, matched)
	require.Equal(t, RoleStreamer, role)
	require.Equal(t, Adapter("cxnv2"), adapter)

	role, adapter, matched = table.Classify(&DeviceDescription{ModelName: "H390 Amplifier"})
	require.True(t, matched)
	require.Equal(t, RoleAmplifier, role)
	require.Equal(t, Adapter("hegel"), adapter)
}

func TestClassifyFallsBackToDeviceType(t *testing.T) {
	table := ClassificationTable{}

	role, _, matched := table.Classify(&DeviceDescription{
		ModelName:  "Unknown Future Device",
		DeviceType: "urn:schemas-upnp-org:device:MediaRenderer:1",
	})
	require.False(t, matched)
	require.Equal(t, RoleStreamer, role)

	role, _, matched = table.Classify(&DeviceDescription{
		ModelName:  "Unknown NAS",
		DeviceType: "urn:schemas-upnp-org:device:MediaServer:1",
	})
	require.False(t, matched)
	require.Equal(t, RoleMediaServer, role)
}
