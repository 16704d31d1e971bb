//go:build linux

package attach

import (
	"os"
	"path/filepath"
	"testing"

	gops "github.com/shirou/gopsutil/v4/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickmem/process"
)

func TestAttachSelf(t *testing.T) {
	exe, err := os.Executable()
	require.NoError(t, err)

	target, err := Attach(process.ProcessID(os.Getpid()), filepath.Base(exe))
	require.NoError(t, err)
	defer target.Close()

	m, err := target.Module(filepath.Base(exe))
	require.NoError(t, err)
	assert.NotZero(t, m.BaseAddress)
	assert.NotZero(t, m.Size)
}

func TestAttachSelfMissingModule(t *testing.T) {
	_, err := Attach(process.ProcessID(os.Getpid()), "libdefinitely-not-loaded.so")
	assert.ErrorIs(t, err, process.ErrModuleNotFound)
}

func TestFindPIDSelf(t *testing.T) {
	self, err := gops.NewProcess(int32(os.Getpid()))
	require.NoError(t, err)
	name, err := self.Name()
	require.NoError(t, err)

	pid, err := FindPID(name)
	require.NoError(t, err)
	assert.Positive(t, int(pid))
}
