package capture

import (
	"bytes"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestKeepAliveRecipe(t *testing.T) {
	got := KeepAliveRecipe()
	want := []byte{0x00, 0x03, 0x00, 0x48, 0x01}
	if !bytes.Equal(got, want) {
		t.Fatalf("KeepAliveRecipe() = % x, want % x", got, want)
	}
}

func TestAuthenticateRecipeBody(t *testing.T) {
	got := AuthenticateRecipe("abc")
	wantBody := []byte{0x00, 0x82, 0x01, 0x0a, 0x82, 0x01, 0x06, 0x0a, 0x03, 0x61, 0x62, 0x63}
	if !bytes.Equal(got[2:], wantBody) {
		t.Fatalf("AuthenticateRecipe body = % x, want % x", got[2:], wantBody)
	}
	gotLen := int(got[0])<<8 | int(got[1])
	if gotLen != len(wantBody) {
		t.Fatalf("length prefix = %d, want %d (byte length of body)", gotLen, len(wantBody))
	}
}

func TestVarint614(t *testing.T) {
	got := protowire.AppendVarint(nil, 614)
	want := []byte{0xe6, 0x04}
	if !bytes.Equal(got, want) {
		t.Fatalf("varint(614) = % x, want % x", got, want)
	}
}

func TestJoinRoomRecipe(t *testing.T) {
	got := JoinRoomRecipe("r1")
	wantPrefix := []byte{0x00, 0x82, 0x01, 0x31, 0x9a, 0x01, 0x2e, 0x0a, 0x02, 'r', '1'}
	if !bytes.Equal(got[2:], wantPrefix) {
		t.Fatalf("JoinRoomRecipe body = % x, want % x", got[2:], wantPrefix)
	}
}
