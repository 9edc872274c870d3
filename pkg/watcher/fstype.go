package watcher

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemType is a best-effort classification of the filesystem holding
// the watched snapshot. Network filesystems get polling up front because
// inotify on them silently drops events.
type FilesystemType int

const (
	FSTypeUnknown FilesystemType = iota
	FSTypeLocal
	FSTypeNFS
	FSTypeSMB
	FSTypeSSHFS
	FSTypeFUSE
)

var fsTypeNames = [...]string{
	FSTypeUnknown: "unknown",
	FSTypeLocal:   "local",
	FSTypeNFS:     "nfs",
	FSTypeSMB:     "smb",
	FSTypeSSHFS:   "sshfs",
	FSTypeFUSE:    "fuse",
}

func (t FilesystemType) String() string {
	if t < 0 || int(t) >= len(fsTypeNames) {
		return "unknown"
	}
	return fsTypeNames[t]
}

// detectFilesystemTypeFunc is swapped out in tests.
var detectFilesystemTypeFunc = detectFromMountTable

// DetectFilesystemType classifies the filesystem under path. Unknown is a
// safe answer; callers treat it like local.
func DetectFilesystemType(path string) FilesystemType {
	if strings.TrimSpace(path) == "" {
		return FSTypeUnknown
	}
	return detectFilesystemTypeFunc(path)
}

func isRemoteFilesystem(t FilesystemType) bool {
	switch t {
	case FSTypeNFS, FSTypeSMB, FSTypeSSHFS, FSTypeFUSE:
		return true
	default:
		return false
	}
}

// detectFromMountTable walks the mount table looking for the longest mount
// point covering path. On systems without a readable mount table the answer
// is FSTypeUnknown.
func detectFromMountTable(path string) FilesystemType {
	abs, err := filepath.Abs(path)
	if err != nil {
		return FSTypeUnknown
	}
	// The snapshot may not exist yet; classify its directory instead.
	if _, err := os.Stat(abs); err != nil {
		abs = filepath.Dir(abs)
	}

	table, err := openMountTable()
	if err != nil {
		return FSTypeUnknown
	}
	defer table.Close()

	bestLen := -1
	best := FSTypeUnknown
	scanner := bufio.NewScanner(table)
	for scanner.Scan() {
		// device mountpoint fstype options dump pass
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		mount := unescapeMountPath(fields[1])
		if !pathHasPrefix(abs, mount) {
			continue
		}
		if len(mount) > bestLen {
			bestLen = len(mount)
			best = classifyMountType(fields[2])
		}
	}
	if err := scanner.Err(); err != nil {
		return FSTypeUnknown
	}
	return best
}

func openMountTable() (*os.File, error) {
	for _, p := range []string{"/proc/self/mounts", "/proc/mounts", "/etc/mtab"} {
		if f, err := os.Open(p); err == nil {
			return f, nil
		}
	}
	return nil, os.ErrNotExist
}

func classifyMountType(fsType string) FilesystemType {
	t := strings.ToLower(fsType)
	switch {
	case t == "nfs" || t == "nfs4" || strings.HasPrefix(t, "nfs"):
		return FSTypeNFS
	case t == "cifs" || t == "smbfs" || t == "smb3":
		return FSTypeSMB
	case t == "fuse.sshfs":
		return FSTypeSSHFS
	case strings.HasPrefix(t, "fuse"):
		return FSTypeFUSE
	default:
		return FSTypeLocal
	}
}

// pathHasPrefix reports whether path sits under mount, component-wise.
func pathHasPrefix(path, mount string) bool {
	if mount == "/" {
		return true
	}
	if path == mount {
		return true
	}
	return strings.HasPrefix(path, mount+string(filepath.Separator))
}

// unescapeMountPath undoes the octal escapes /proc/mounts uses for spaces
// and tabs in mount points.
func unescapeMountPath(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	replacer := strings.NewReplacer(
		"\\040", " ",
		"\\011", "\t",
		"\\012", "\n",
		"\\134", "\\",
	)
	return replacer.Replace(s)
}
