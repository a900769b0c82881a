package fat32_test

import (
	"strings"
	"testing"

	"github.com/embedfs/fat32/fat32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSFNFile(t *testing.T) {
	assert.NoError(t, fat32.ValidateSFN("README.TXT", fat32.KindFile))
	assert.NoError(t, fat32.ValidateSFN("A", fat32.KindFile))
	assert.Error(t, fat32.ValidateSFN("TOOLONGNAME.TXT", fat32.KindFile))
	assert.Error(t, fat32.ValidateSFN("README.TOOLONG", fat32.KindFile))
	assert.Error(t, fat32.ValidateSFN("A.B.C", fat32.KindFile))
	assert.Error(t, fat32.ValidateSFN("bad name.txt", fat32.KindFile))
}

func TestValidateSFNDirectory(t *testing.T) {
	assert.NoError(t, fat32.ValidateSFN("MYDIR", fat32.KindDirectory))
	assert.Error(t, fat32.ValidateSFN("MY.DIR", fat32.KindDirectory))
	assert.Error(t, fat32.ValidateSFN("WAYTOOLONG", fat32.KindDirectory))
}

func TestValidateLFNFile(t *testing.T) {
	assert.NoError(t, fat32.ValidateLFN("This is a valid long filename.txt", fat32.KindFile))
	assert.Error(t, fat32.ValidateLFN("bad.ext.two", fat32.KindFile))
	assert.Error(t, fat32.ValidateLFN("name.tooolong", fat32.KindFile))
}

func TestFormatSFNPadsTo11Bytes(t *testing.T) {
	sfn := fat32.FormatSFN("a.b")
	assert.Equal(t, "A       B  ", string(sfn[:]))
}

func TestDeriveSFNFromLongName(t *testing.T) {
	sfn, err := fat32.DeriveSFN("This is a valid long filename.txt", 1)
	require.NoError(t, err)
	assert.Equal(t, "THISIS~1TXT", string(sfn[:]))
	assert.NoError(t, fat32.ValidateSFN(strings.TrimRight(string(sfn[:8]), " ")+"."+string(sfn[8:11]), fat32.KindFile))
}

func TestSFNChecksumStable(t *testing.T) {
	sfn := fat32.FormatSFN("TEST.TXT")
	c1 := fat32.SFNChecksum(sfn)
	c2 := fat32.SFNChecksum(sfn)
	assert.Equal(t, c1, c2)
}

func TestASCIIUTF16RoundTrip(t *testing.T) {
	original := "Hello, World!"
	units := fat32.ASCIIToUTF16LE(original)
	assert.Equal(t, original, fat32.UTF16LEToASCII(units))
}
