package ext4

import "testing"

func TestBitmapSetClearTest(t *testing.T) {
	bm := newBitmap(make([]byte, 8), 64)
	if bm.Test(5) {
		t.Fatalf("bit 5 should start clear")
	}
	bm.Set(5)
	if !bm.Test(5) {
		t.Fatalf("bit 5 should be set")
	}
	bm.Clear(5)
	if bm.Test(5) {
		t.Fatalf("bit 5 should be clear again")
	}
}

func TestBitmapLSBFirst(t *testing.T) {
	bm := newBitmap(make([]byte, 1), 8)
	bm.Set(0)
	if bm.bits[0] != 0x01 {
		t.Fatalf("bit 0 should map to the LSB of byte 0, got %#x", bm.bits[0])
	}
	bm.Set(7)
	if bm.bits[0] != 0x81 {
		t.Fatalf("bit 7 should map to the MSB of byte 0, got %#x", bm.bits[0])
	}
}

func TestBitmapFindAndSetFirstClear(t *testing.T) {
	bm := newBitmap(make([]byte, 2), 16)
	for i := 0; i < 10; i++ {
		bm.Set(i)
	}
	idx := bm.FindAndSetFirstClear(0)
	if idx != 10 {
		t.Fatalf("expected first clear bit at 10, got %d", idx)
	}
	if !bm.Test(10) {
		t.Fatalf("FindAndSetFirstClear should have set bit 10")
	}
}

func TestBitmapFindFirstClearFullByteSkip(t *testing.T) {
	data := []byte{0xff, 0xff, 0x00}
	bm := newBitmap(data, 24)
	idx := bm.FindFirstClear(0)
	if idx != 16 {
		t.Fatalf("expected first clear bit at 16, got %d", idx)
	}
}

func TestBitmapFindFirstClearNoneLeft(t *testing.T) {
	bm := newBitmap([]byte{0xff}, 8)
	if idx := bm.FindFirstClear(0); idx != -1 {
		t.Fatalf("expected -1 when the bitmap is full, got %d", idx)
	}
}

func TestBitmapCountClear(t *testing.T) {
	bm := newBitmap(make([]byte, 2), 16)
	bm.Set(0)
	bm.Set(1)
	bm.Set(2)
	if got := bm.CountClear(); got != 13 {
		t.Fatalf("expected 13 clear bits, got %d", got)
	}
}
