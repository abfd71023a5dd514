package badgerdb

import (
	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

// createDB opens a badgerhold store in dir, or an in-memory one if dir is empty.
func createDB(dir string, logger badger.Logger) (*badgerhold.Store, error) {
	opts := badger.DefaultOptions(dir)
	if len(dir) <= 0 {
		opts = opts.WithInMemory(true)
	}
	// a nil logger silences badger
	opts = opts.WithLogger(logger)

	return badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
}
