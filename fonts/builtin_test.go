package fonts

import (
	"bytes"
	"testing"
)

func TestLoadBuiltin(t *testing.T) {
	for _, name := range []string{"GoRegular", "embed:GoBold", " embed:GoRegular "} {
		data, err := Load(name)
		if err != nil {
			t.Fatalf("Load(%q) error: %v", name, err)
		}
		// TrueType 文件以 0x00010000 开头
		if !bytes.HasPrefix(data, []byte{0x00, 0x01, 0x00, 0x00}) {
			t.Fatalf("Load(%q) 返回的不是 TrueType 数据", name)
		}
	}
	if _, err := Load("embed:Inter-Regular"); err == nil {
		t.Fatalf("未知字体应报错")
	}
	if got := Names(); len(got) != 2 || got[0] != Bold {
		t.Fatalf("Names() = %v", got)
	}
}
