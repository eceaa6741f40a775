package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

const spsTrigger = `<?xml version="1.0" encoding="UTF-8"?>
<activeTriggers>
  <triggerConfig>
    <triggerType>0</triggerType>
    <triggerConfigId>0</triggerConfigId>
    <sourceId>4000</sourceId>
    <triggerName>SimpleMajorityTrigger</triggerName>
  </triggerConfig>
  <triggerConfig>
    <triggerType>2</triggerType>
    <triggerConfigId>1</triggerConfigId>
    <sourceId>5000</sourceId>
    <triggerName>SimpleMajorityTrigger</triggerName>
  </triggerConfig>
  <triggerConfig>
    <triggerType>3</triggerType>
    <triggerConfigId>-1</triggerConfigId>
    <sourceId>6000</sourceId>
    <triggerName>ThroughputTrigger</triggerName>
  </triggerConfig>
</activeTriggers>
`

const spsConfig = `<?xml version="1.0" encoding="UTF-8"?>
<runConfig>
  <domConfigList hub="1">sps-ichub01</domConfigList>
  <domConfigList hub="2">sps-ichub02</domConfigList>
  <domConfigList hub="201">sps-ithub01</domConfigList>
  <triggerConfig>sps-trigger</triggerConfig>
  <runComponent name="inIceTrigger"/>
  <runComponent name="iceTopTrigger"/>
  <runComponent name="globalTrigger"/>
  <runComponent name="eventBuilder"/>
</runConfig>
`

// writeFile creates dir/name with the given contents, making parent directories.
func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// runConfigXML builds a run configuration with the given hubs and components.
func runConfigXML(hubs []string, components ...string) string {
	s := "<runConfig>\n"
	for _, h := range hubs {
		s += `  <domConfigList hub="` + h + `">doms</domConfigList>` + "\n"
	}
	for _, c := range components {
		s += `  <runComponent name="` + c + `"/>` + "\n"
	}
	return s + "</runConfig>\n"
}

// newConfigDir returns a directory holding the sps configuration and its trigger file.
func newConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "trigger/sps-trigger.xml", spsTrigger)
	writeFile(t, dir, "sps-2024.xml", spsConfig)
	return dir
}
