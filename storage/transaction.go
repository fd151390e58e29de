package storage

import (
	"sync"

	"github.com/meridian-money/meridiand/fault"
)

// Transaction - a batch of pool updates that commits as a single
// atomic write
type Transaction interface {
	Abort()
	Begin() error
	Commit() error
	Delete(*PoolHandle, []byte)
	DumpTx() []byte
	Get(*PoolHandle, []byte) []byte
	GetN(*PoolHandle, []byte) (uint64, bool)
	GetNB(*PoolHandle, []byte) (uint64, []byte)
	Has(*PoolHandle, []byte) bool
	InUse() bool
	Put(*PoolHandle, []byte, []byte)
	PutN(*PoolHandle, []byte, uint64)
}

type TransactionData struct {
	sync.Mutex
	inUse      bool
	dataAccess []Access
}

func newTransaction(access []Access) Transaction {
	return &TransactionData{
		inUse:      false,
		dataAccess: access,
	}
}

// Begin - mark the transaction as in use, only one batch of updates
// can be pending at a time
func (t *TransactionData) Begin() error {
	t.Lock()
	defer t.Unlock()

	if t.inUse {
		return fault.TransactionAlreadyInUse
	}

	for _, access := range t.dataAccess {
		err := access.Begin()
		if nil != err {
			return err
		}
	}

	t.inUse = true
	return nil
}

func (t *TransactionData) Put(pool *PoolHandle, key []byte, value []byte) {
	pool.put(key, value)
}

func (t *TransactionData) PutN(pool *PoolHandle, key []byte, value uint64) {
	pool.putN(key, value)
}

func (t *TransactionData) Delete(pool *PoolHandle, key []byte) {
	pool.remove(key)
}

// Commit - write all pending updates to the database
func (t *TransactionData) Commit() error {
	t.Lock()
	defer t.Unlock()

	for _, access := range t.dataAccess {
		err := access.Commit()
		if nil != err {
			return err
		}
	}
	t.clear()
	return nil
}

// Abort - discard all pending updates
func (t *TransactionData) Abort() {
	t.Lock()
	defer t.Unlock()
	t.clear()
}

// caller must hold the lock
func (t *TransactionData) clear() {
	for _, access := range t.dataAccess {
		access.Abort()
	}
	t.inUse = false
}

func (t *TransactionData) InUse() bool {
	t.Lock()
	defer t.Unlock()
	return t.inUse
}

func (t *TransactionData) DumpTx() []byte {
	buffer := []byte{}
	for _, access := range t.dataAccess {
		buffer = append(buffer, access.DumpTx()...)
	}
	return buffer
}

// reads pass through the pool so pending updates are visible before
// the commit

func (t *TransactionData) Get(pool *PoolHandle, key []byte) []byte {
	return pool.Get(key)
}

func (t *TransactionData) GetN(pool *PoolHandle, key []byte) (uint64, bool) {
	return pool.GetN(key)
}

func (t *TransactionData) GetNB(pool *PoolHandle, key []byte) (uint64, []byte) {
	return pool.GetNB(key)
}

func (t *TransactionData) Has(pool *PoolHandle, key []byte) bool {
	return pool.Has(key)
}
