package output

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTable(t *testing.T) {
	var out bytes.Buffer
	p := Printer{Out: &out}
	p.Table([][]string{
		{"ID", "NAME", "IMAGE"},
		{"1", "mossy_violet_otter", "https://gw/ipfs/a"},
		{"12", "x", ""},
	})
	require.Equal(t, "ID  NAME                IMAGE\n"+
		"1   mossy_violet_otter  https://gw/ipfs/a\n"+
		"12  x\n", out.String())
}

func TestTableEmpty(t *testing.T) {
	var out bytes.Buffer
	Printer{Out: &out}.Table(nil)
	require.Empty(t, out.String())
}

func TestMessages(t *testing.T) {
	var out, errOut bytes.Buffer
	p := Printer{Out: &out, Err: &errOut}
	p.Success("minted token %s", "7")
	p.Warning("%d entries failed", 2)
	p.Error(errors.New("boom"))
	require.Equal(t, "doodlemint: minted token 7\n", out.String())
	require.Equal(t, "warning: 2 entries failed\nerror: boom\n", errOut.String())

	out.Reset()
	require.NoError(t, p.JSON(map[string]string{"id": "7"}))
	require.JSONEq(t, `{"status":"success","data":{"id":"7"}}`, out.String())
}
