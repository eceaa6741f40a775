package catalog

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// HashName returns the baseline hash for a run configuration name.
//
// A trailing ".xml" is ignored. The hash is the hex MD5 digest of the
// name with leading zeros stripped, matching the names of baseline
// files recorded by earlier harness versions.
func HashName(name string) string {
	name = strings.TrimSuffix(name, ".xml")
	sum := md5.Sum([]byte(name))
	return strings.TrimLeft(hex.EncodeToString(sum[:]), "0")
}

// trimXML strips a single ".xml" suffix.
func trimXML(name string) string {
	return strings.TrimSuffix(name, ".xml")
}
