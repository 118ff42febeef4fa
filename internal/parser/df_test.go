package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junzzhu/openshift-mcp-server/internal/diagerr"
)

const dfHuman = `Filesystem      Size  Used Avail Use% Mounted on
/dev/nvme0n1p4  250G  206G  44G  83% /sysroot
tmpfs            16G   84K   16G   1% /tmp
`

func TestParseDiskUsageHuman(t *testing.T) {
	table, err := ParseDiskUsage("worker-0", dfHuman)
	require.NoError(t, err)
	require.Len(t, table.Filesystems, 2)
	assert.Empty(t, table.Skipped)

	root := table.Filesystems[0]
	assert.Equal(t, "/dev/nvme0n1p4", root.Filesystem)
	assert.Equal(t, "/sysroot", root.MountedOn)
	assert.Equal(t, "250.00 Gi", root.Size.Format())
	assert.Equal(t, "206.00 Gi", root.Used.Format())
	assert.Equal(t, "44.00 Gi", root.Available.Format())
	assert.True(t, root.HasUsePct)
	assert.Equal(t, "83.0%", root.UsePct.Format())
}

func TestParseDiskUsageBlocksWithType(t *testing.T) {
	text := `Filesystem     Type 1K-blocks     Used Available Use% Mounted on
/dev/sda1      xfs  104857600 52428800  52428800  50% /
/dev/mapper/coreos-luks-root-nocrypt
               xfs  10485760   1048576   9437184  10% /var/lib/containers
/dev/sdb       ext4      2048     1024      1024  50% /mnt/my disk
`
	table, err := ParseDiskUsage("worker-1", text)
	require.NoError(t, err)
	require.Len(t, table.Filesystems, 3)

	assert.Equal(t, "xfs", table.Filesystems[0].Type)
	assert.Equal(t, int64(100)<<30, table.Filesystems[0].Size.Bytes())

	assert.Equal(t, "/dev/mapper/coreos-luks-root-nocrypt", table.Filesystems[1].Filesystem)
	assert.Equal(t, "/var/lib/containers", table.Filesystems[1].MountedOn)
	assert.Equal(t, int64(10)<<30, table.Filesystems[1].Size.Bytes())

	assert.Equal(t, "/mnt/my disk", table.Filesystems[2].MountedOn)
}

func TestParseDiskUsageSkipsBadRows(t *testing.T) {
	text := dfHuman + "garbage 12\n/dev/sdc  lots  1G  1G  50% /data\n"
	table, err := ParseDiskUsage("worker-0", text)
	require.NoError(t, err)
	assert.Len(t, table.Filesystems, 2)
	assert.Equal(t, []string{"garbage 12", "/dev/sdc lots 1G 1G 50% /data"}, table.Skipped)
}

func TestParseDiskUsageMalformedHeader(t *testing.T) {
	_, err := ParseDiskUsage("worker-0", "")
	assert.True(t, diagerr.Is(err, diagerr.MalformedTable))

	_, err = ParseDiskUsage("worker-0", "Filesystem Used Avail\n/dev/sda 1G 1G\n")
	require.Error(t, err)
	assert.True(t, diagerr.Is(err, diagerr.MalformedTable))
	assert.Contains(t, err.Error(), "Size")
}
