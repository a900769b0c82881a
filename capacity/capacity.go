// Package capacity supplies the formatter's capacity-band → sectors-per-
// cluster lookup table (spec §4.9): given a nominal volume size, how many
// sectors make up one cluster. The table is Microsoft's published FAT32
// cluster-size recommendation, expressed in 512-byte sectors.
//
// Grounded on the teacher's disks/disks.go: a go:embed'd CSV parsed with
// gocsv.UnmarshalToCallback into a lookup structure, built once at package
// init. Unlike disks.go's free-form disk geometries, these rows are a
// sorted, non-overlapping set of byte ranges, so lookup is a single linear
// scan rather than a map.
package capacity

import (
	_ "embed"
	"strings"

	"github.com/embedfs/fat32/errors"
	"github.com/gocarina/gocsv"
)

// Band describes one row of the capacity table: volumes with a nominal size
// in (MinBytes, MaxBytes] use SectorsPerCluster sectors per cluster.
type Band struct {
	MinBytes          uint64 `csv:"min_bytes"`
	MaxBytes          uint64 `csv:"max_bytes"`
	SectorsPerCluster uint   `csv:"sectors_per_cluster"`
	Label             string `csv:"label"`
}

//go:embed bands.csv
var bandsRawCSV string

var bands []Band

func init() {
	reader := strings.NewReader(bandsRawCSV)
	err := gocsv.UnmarshalToCallback(reader, func(row Band) error {
		bands = append(bands, row)
		return nil
	})
	if err != nil {
		panic(err)
	}
}

// SectorsPerCluster returns the sectors-per-cluster value for a volume of
// the given nominal capacity in bytes. Capacities outside every band (too
// small, or larger than the largest supported band) are rejected, matching
// spec §4.9's "outside supported bands, rejects".
func SectorsPerCluster(capacityBytes uint64) (uint, error) {
	for _, band := range bands {
		if capacityBytes > band.MinBytes && capacityBytes <= band.MaxBytes {
			return band.SectorsPerCluster, nil
		}
	}
	return 0, errors.ErrInvalidArgument.WithMessage("volume capacity is outside every supported FAT32 capacity band")
}
