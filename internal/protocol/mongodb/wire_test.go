package mongodb

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/launix-de/lumadb/internal/protocol/common"
)

func pipeConns() (*common.Conn, *common.Conn, func()) {
	a, b := net.Pipe()
	return common.NewConn(a, time.Minute), common.NewConn(b, time.Minute), func() {
		a.Close()
		b.Close()
	}
}

func TestReadCString(t *testing.T) {
	buf := append([]byte("test.$cmd"), 0, 'x')
	s, n, err := readCString(buf)
	if err != nil {
		t.Fatalf("readCString: %v", err)
	}
	if s != "test.$cmd" {
		t.Errorf("readCString = %q, want %q", s, "test.$cmd")
	}
	if n != len("test.$cmd")+1 {
		t.Errorf("consumed %d bytes, want %d", n, len("test.$cmd")+1)
	}
}

func TestReadCStringUnterminated(t *testing.T) {
	if _, _, err := readCString([]byte("no-nul-here")); err == nil {
		t.Error("readCString should fail on an unterminated buffer")
	}
}

func TestReadDocSequence(t *testing.T) {
	doc1, _ := bson.Marshal(bson.M{"a": 1})
	doc2, _ := bson.Marshal(bson.M{"b": 2})
	buf := append(append([]byte{}, doc1...), doc2...)

	docs, err := readDocSequence(buf)
	if err != nil {
		t.Fatalf("readDocSequence: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}
	var out bson.M
	if err := bson.Unmarshal(docs[1], &out); err != nil {
		t.Fatalf("unmarshal second doc: %v", err)
	}
	if out["b"] != int32(2) {
		t.Errorf("second document b = %v, want 2", out["b"])
	}
}

// writeRawLegacyMessage hand-builds a legacy-opcode message (everything
// after the 16-byte header is what readOpQueryBody/readOpInsertBody/etc.
// consume). It reports write errors via t.Errorf rather than t.Fatalf
// since it always runs on a goroutine of its own, and only the test's own
// goroutine may call FailNow.
func writeRawLegacyMessage(t *testing.T, c *common.Conn, opCode uint32, body []byte) {
	t.Helper()
	total := 16 + len(body)
	out := make([]byte, 16, total)
	binary.LittleEndian.PutUint32(out[0:4], uint32(total))
	binary.LittleEndian.PutUint32(out[4:8], 1)
	binary.LittleEndian.PutUint32(out[8:12], 0)
	binary.LittleEndian.PutUint32(out[12:16], opCode)
	out = append(out, body...)
	if _, err := c.Write(out); err != nil {
		t.Errorf("writing legacy message: %v", err)
	}
}

func TestReadOpQueryBodyFind(t *testing.T) {
	client, server, closeFn := pipeConns()
	defer closeFn()

	queryDoc, _ := bson.Marshal(bson.M{"name": "alice"})
	var body []byte
	body = append(body, 0, 0, 0, 0) // flags
	body = append(body, []byte("mydb.users")...)
	body = append(body, 0) // cstring terminator
	var skip, ret [4]byte
	binary.LittleEndian.PutUint32(skip[:], 0)
	binary.LittleEndian.PutUint32(ret[:], 100)
	body = append(body, skip[:]...)
	body = append(body, ret[:]...)
	body = append(body, queryDoc...)

	go writeRawLegacyMessage(t, client, opQuery, body)

	h, err := readHeader(server)
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if h.opCode != opQuery {
		t.Fatalf("opCode = %d, want %d", h.opCode, opQuery)
	}
	q, err := readOpQueryBody(server, h)
	if err != nil {
		t.Fatalf("readOpQueryBody: %v", err)
	}
	if q.collection != "mydb.users" {
		t.Errorf("collection = %q, want %q", q.collection, "mydb.users")
	}
	if q.numberToReturn != 100 {
		t.Errorf("numberToReturn = %d, want 100", q.numberToReturn)
	}
	var decoded bson.M
	if err := bson.Unmarshal(q.query, &decoded); err != nil {
		t.Fatalf("unmarshal query doc: %v", err)
	}
	if decoded["name"] != "alice" {
		t.Errorf("query.name = %v, want alice", decoded["name"])
	}
}

func TestReadOpInsertBody(t *testing.T) {
	client, server, closeFn := pipeConns()
	defer closeFn()

	doc1, _ := bson.Marshal(bson.M{"x": 1})
	doc2, _ := bson.Marshal(bson.M{"x": 2})
	var body []byte
	body = append(body, 0, 0, 0, 0) // flags
	body = append(body, []byte("mydb.items")...)
	body = append(body, 0)
	body = append(body, doc1...)
	body = append(body, doc2...)

	go writeRawLegacyMessage(t, client, opInsert, body)

	h, err := readHeader(server)
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	w, err := readOpInsertBody(server, h)
	if err != nil {
		t.Fatalf("readOpInsertBody: %v", err)
	}
	if w.collection != "mydb.items" {
		t.Errorf("collection = %q, want %q", w.collection, "mydb.items")
	}
	if len(w.docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(w.docs))
	}
}

func TestWriteOpReplyFraming(t *testing.T) {
	client, server, closeFn := pipeConns()
	defer closeFn()

	doc, _ := bson.Marshal(bson.M{"ok": 1})
	go func() {
		if err := writeOpReply(client, 42, [][]byte{doc}); err != nil {
			t.Errorf("writeOpReply: %v", err)
		}
	}()

	h, err := readHeader(server)
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if h.opCode != opReply {
		t.Errorf("opCode = %d, want %d", h.opCode, opReply)
	}
	if h.responseTo != 42 {
		t.Errorf("responseTo = %d, want 42", h.responseTo)
	}

	rest := make([]byte, int(h.length)-16)
	if err := server.ReadFull(rest); err != nil {
		t.Fatalf("reading reply body: %v", err)
	}
	numberReturned := binary.LittleEndian.Uint32(rest[16:20])
	if numberReturned != 1 {
		t.Errorf("numberReturned = %d, want 1", numberReturned)
	}
	var decoded bson.M
	if err := bson.Unmarshal(rest[20:], &decoded); err != nil {
		t.Fatalf("unmarshal reply document: %v", err)
	}
	if decoded["ok"] != int32(1) {
		t.Errorf("ok = %v, want 1", decoded["ok"])
	}
}
