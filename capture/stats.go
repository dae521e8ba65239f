package capture

import "go.etcd.io/bbolt"

// Stats describes the space used by a capture file.
type Stats struct {
	Records   int `json:"records"`
	DataSize  int `json:"data_size"`
	DataAlloc int `json:"data_alloc"`
	FileSize  int `json:"file_size"`
}

func (s *Store) Stats() (Stats, error) {
	var result Stats
	err := s.bdb.View(func(btx *bbolt.Tx) error {
		result.FileSize = int(btx.Size())
		b := btx.Bucket(responsesBucket)
		if b == nil {
			return nil
		}
		bs := b.Stats()
		result.Records = bs.KeyN
		// small buckets live inline in their parent page
		result.DataSize = bs.LeafInuse + bs.InlineBucketInuse
		result.DataAlloc = bs.BranchAlloc + bs.LeafAlloc + bs.InlineBucketInuse
		return nil
	})
	return result, err
}
