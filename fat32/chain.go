package fat32

import "github.com/embedfs/fat32/errors"

// Position is the (cluster, sector-within-cluster, byte-within-sector,
// cluster-index) quadruple spec §4.4 returns from locate — enough to
// address any byte in a file's data without re-walking from the head.
type Position struct {
	Cluster      Cluster
	SectorInClus uint
	ByteInSector uint
	ClusterIndex uint
}

// Locate implements spec §4.4's locate: divide byte_offset by cluster_bytes
// to find the cluster index, walk the chain that many hops from head, then
// divide the remainder by bytes_per_sector to land on a sector and byte
// within it.
func (l *Layout) Locate(head Cluster, byteOffset uint) (Position, error) {
	clusterIndex := byteOffset / l.ClusterBytes
	withinCluster := byteOffset % l.ClusterBytes
	sectorInCluster := withinCluster / l.BytesPerSector
	byteInSector := withinCluster % l.BytesPerSector

	cur := head
	for i := uint(0); i < clusterIndex; i++ {
		next, err := l.GetNext(cur)
		if err != nil {
			return Position{}, err
		}
		if IsEndOfChain(next) {
			return Position{}, errors.ErrClusterChainBroken.WithMessage("offset is past the end of the chain")
		}
		if !IsValidCluster(next) {
			return Position{}, errors.ErrInvalidClusterChain
		}
		cur = next
	}

	return Position{
		Cluster:      cur,
		SectorInClus: sectorInCluster,
		ByteInSector: byteInSector,
		ClusterIndex: clusterIndex,
	}, nil
}

// ExtendIfNeeded implements spec §4.4's extend_if_needed: if cur is the
// last cluster in its chain, allocate a new one and link it. On any
// failure the chain is left untouched — the new cluster (if allocated) is
// simply not linked in, so no corruption is introduced.
func (l *Layout) ExtendIfNeeded(cur Cluster) (Cluster, error) {
	next, err := l.GetNext(cur)
	if err != nil {
		return 0, err
	}

	if !IsEndOfChain(next) {
		return next, nil
	}

	newCluster, err := l.Allocate()
	if err != nil {
		return 0, err
	}

	if err := l.Update(cur, newCluster); err != nil {
		return 0, err
	}

	return newCluster, nil
}

// sectorLBA returns the absolute LBA of sector sectorInCluster within
// cluster c.
func (l *Layout) sectorLBA(c Cluster, sectorInCluster uint) uint {
	return l.clusterToLBA(c) + sectorInCluster
}
