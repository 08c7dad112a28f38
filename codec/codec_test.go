package codec

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"google.golang.org/protobuf/types/known/wrapperspb"
)

type row struct {
	ID   int64  `json:"id" msgpack:"id" cbor:"id"`
	Name string `json:"name" msgpack:"name" cbor:"name"`
}

func TestCodecsRoundTripRows(t *testing.T) {
	in := []row{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}
	codecs := map[string]Codec[[]row]{
		"json":    JSON[[]row]{},
		"msgpack": Msgpack[[]row]{},
		"cbor":    MustCBOR[[]row](false),
	}
	for name, c := range codecs {
		t.Run(name, func(t *testing.T) {
			b, err := c.Encode(in)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			out, err := c.Decode(b)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !reflect.DeepEqual(in, out) {
				t.Fatalf("got %+v want %+v", out, in)
			}
		})
	}
}

func TestDeterministicCBORIsOrderIndependent(t *testing.T) {
	c := MustCBOR[map[string]int](true)
	a := map[string]int{}
	b := map[string]int{}
	for i, k := range []string{"x", "y", "z", "w"} {
		a[k] = i
	}
	for _, k := range []string{"w", "z", "y", "x"} {
		b[k] = a[k]
	}
	ea, _ := c.Encode(a)
	eb, _ := c.Encode(b)
	if !bytes.Equal(ea, eb) {
		t.Fatalf("deterministic encodings differ")
	}
}

func TestProtobuf(t *testing.T) {
	c := NewProtobuf(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })
	b, err := c.Encode(wrapperspb.String("hello"))
	if err != nil {
		t.Fatal(err)
	}
	m, err := c.Decode(b)
	if err != nil || m.GetValue() != "hello" {
		t.Fatalf("Decode = %v, %v", m, err)
	}
}

func TestLimitRejectsOversizedPayload(t *testing.T) {
	c := Limit[string]{Inner: String{}, MaxDecode: 4}
	if _, err := c.Decode([]byte("12345")); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("want ErrTooLarge, got %v", err)
	}
	if s, err := c.Decode([]byte("1234")); err != nil || s != "1234" {
		t.Fatalf("Decode at limit = %q, %v", s, err)
	}
}
