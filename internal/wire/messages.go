package wire

// KV is one key/value pair returned by a SCAN.
type KV struct {
	Key   []byte
	Value []byte
}

// PeekTransactionID extracts the transaction id carried as the first
// schema field of every transaction-bound opcode (ABORT, READ, WRITE,
// SCAN, END), without decoding the rest of the payload. The worker
// manager uses this to route a message to its worker before the
// dispatcher gets a chance to fully decode it.
func PeekTransactionID(payload []byte) (int64, error) {
	d := newDecoder(payload)
	return d.getInt64()
}

// --- BEGIN ---

type BeginRequest struct{}

func (r *BeginRequest) Marshal() []byte { return nil }

func (r *BeginRequest) Unmarshal(payload []byte) error { return nil }

type BeginResponse struct {
	TransactionID int64
}

func (r *BeginResponse) Marshal() []byte {
	e := &encoder{}
	e.putInt64(r.TransactionID)
	return e.bytes()
}

func (r *BeginResponse) Unmarshal(payload []byte) error {
	d := newDecoder(payload)
	id, err := d.getInt64()
	if err != nil {
		return err
	}
	r.TransactionID = id
	return nil
}

// --- ABORT ---

type AbortRequest struct {
	TransactionID int64
}

func (r *AbortRequest) Marshal() []byte {
	e := &encoder{}
	e.putInt64(r.TransactionID)
	return e.bytes()
}

func (r *AbortRequest) Unmarshal(payload []byte) error {
	d := newDecoder(payload)
	id, err := d.getInt64()
	if err != nil {
		return err
	}
	r.TransactionID = id
	return nil
}

type AbortResponse struct{}

func (r *AbortResponse) Marshal() []byte { return nil }

func (r *AbortResponse) Unmarshal(payload []byte) error { return nil }

// --- READ ---

type ReadRequest struct {
	TransactionID int64
	Key           []byte
}

func (r *ReadRequest) Marshal() []byte {
	e := &encoder{}
	e.putInt64(r.TransactionID)
	e.putBytes(r.Key)
	return e.bytes()
}

func (r *ReadRequest) Unmarshal(payload []byte) error {
	d := newDecoder(payload)
	var err error
	if r.TransactionID, err = d.getInt64(); err != nil {
		return err
	}
	if r.Key, err = d.getBytes(); err != nil {
		return err
	}
	return nil
}

type ReadResponse struct {
	Found     bool
	Value     []byte
	IsAborted bool
}

func (r *ReadResponse) Marshal() []byte {
	e := &encoder{}
	e.putBool(r.Found)
	e.putBytes(r.Value)
	e.putBool(r.IsAborted)
	return e.bytes()
}

func (r *ReadResponse) Unmarshal(payload []byte) error {
	d := newDecoder(payload)
	var err error
	if r.Found, err = d.getBool(); err != nil {
		return err
	}
	if r.Value, err = d.getBytes(); err != nil {
		return err
	}
	if r.IsAborted, err = d.getBool(); err != nil {
		return err
	}
	return nil
}

// --- WRITE ---

type WriteRequest struct {
	TransactionID int64
	Key           []byte
	Value         []byte
}

func (r *WriteRequest) Marshal() []byte {
	e := &encoder{}
	e.putInt64(r.TransactionID)
	e.putBytes(r.Key)
	e.putBytes(r.Value)
	return e.bytes()
}

func (r *WriteRequest) Unmarshal(payload []byte) error {
	d := newDecoder(payload)
	var err error
	if r.TransactionID, err = d.getInt64(); err != nil {
		return err
	}
	if r.Key, err = d.getBytes(); err != nil {
		return err
	}
	if r.Value, err = d.getBytes(); err != nil {
		return err
	}
	return nil
}

type WriteResponse struct {
	Success   bool
	IsAborted bool
}

func (r *WriteResponse) Marshal() []byte {
	e := &encoder{}
	e.putBool(r.Success)
	e.putBool(r.IsAborted)
	return e.bytes()
}

func (r *WriteResponse) Unmarshal(payload []byte) error {
	d := newDecoder(payload)
	var err error
	if r.Success, err = d.getBool(); err != nil {
		return err
	}
	if r.IsAborted, err = d.getBool(); err != nil {
		return err
	}
	return nil
}

// --- SCAN ---

type ScanRequest struct {
	TransactionID int64
	DBTableKey    []byte // table_prefix
	FirstKeyPart  []byte
}

func (r *ScanRequest) Marshal() []byte {
	e := &encoder{}
	e.putInt64(r.TransactionID)
	e.putBytes(r.DBTableKey)
	e.putBytes(r.FirstKeyPart)
	return e.bytes()
}

func (r *ScanRequest) Unmarshal(payload []byte) error {
	d := newDecoder(payload)
	var err error
	if r.TransactionID, err = d.getInt64(); err != nil {
		return err
	}
	if r.DBTableKey, err = d.getBytes(); err != nil {
		return err
	}
	if r.FirstKeyPart, err = d.getBytes(); err != nil {
		return err
	}
	return nil
}

type ScanResponse struct {
	KeyValues []KV
	IsAborted bool
}

func (r *ScanResponse) Marshal() []byte {
	e := &encoder{}
	e.putInt64(int64(len(r.KeyValues)))
	for _, kv := range r.KeyValues {
		e.putBytes(kv.Key)
		e.putBytes(kv.Value)
	}
	e.putBool(r.IsAborted)
	return e.bytes()
}

func (r *ScanResponse) Unmarshal(payload []byte) error {
	d := newDecoder(payload)
	n, err := d.getInt64()
	if err != nil {
		return err
	}
	if n < 0 || n > (1<<20) {
		return ErrTruncated
	}
	kvs := make([]KV, 0, n)
	for i := int64(0); i < n; i++ {
		var kv KV
		if kv.Key, err = d.getBytes(); err != nil {
			return err
		}
		if kv.Value, err = d.getBytes(); err != nil {
			return err
		}
		kvs = append(kvs, kv)
	}
	r.KeyValues = kvs
	if r.IsAborted, err = d.getBool(); err != nil {
		return err
	}
	return nil
}

// --- FENCE ---

type FenceRequest struct{}

func (r *FenceRequest) Marshal() []byte { return nil }

func (r *FenceRequest) Unmarshal(payload []byte) error { return nil }

type FenceResponse struct{}

func (r *FenceResponse) Marshal() []byte { return nil }

func (r *FenceResponse) Unmarshal(payload []byte) error { return nil }

// --- END ---

type EndRequest struct {
	TransactionID int64
	Fence         bool
}

func (r *EndRequest) Marshal() []byte {
	e := &encoder{}
	e.putInt64(r.TransactionID)
	e.putBool(r.Fence)
	return e.bytes()
}

func (r *EndRequest) Unmarshal(payload []byte) error {
	d := newDecoder(payload)
	var err error
	if r.TransactionID, err = d.getInt64(); err != nil {
		return err
	}
	if r.Fence, err = d.getBool(); err != nil {
		return err
	}
	return nil
}

type EndResponse struct {
	IsAborted bool
}

func (r *EndResponse) Marshal() []byte {
	e := &encoder{}
	e.putBool(r.IsAborted)
	return e.bytes()
}

func (r *EndResponse) Unmarshal(payload []byte) error {
	d := newDecoder(payload)
	var err error
	if r.IsAborted, err = d.getBool(); err != nil {
		return err
	}
	return nil
}
