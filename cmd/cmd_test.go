package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.ExecuteContext(t.Context()))
	return buf.String()
}

func TestNamesCommand(t *testing.T) {
	out := execute(t, "names", "--count", "3", "--seed", "7")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	require.True(t, strings.HasPrefix(lines[0], "NAME"))
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		require.Len(t, fields, 2)
		require.Len(t, strings.Split(fields[0], "_"), 3)
	}

	again := execute(t, "names", "--count", "3", "--seed", "7")
	require.Equal(t, out, again)
}

func TestVersionCommand(t *testing.T) {
	out := execute(t, "version")
	require.Contains(t, out, "version: dev")
	require.Contains(t, out, "commit: none")
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"mint", "gallery", "names", "gateway", "version"} {
		c, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err)
		require.Equal(t, name, c.Name())
	}
}

func TestSetSpanAttributes(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	parent := &cobra.Command{Use: "doodlemint"}
	child := &cobra.Command{Use: "mint"}
	child.Flags().String("name", "", "")
	child.Flags().Bool("json", false, "")
	child.Flags().Int("count", 0, "")
	parent.AddCommand(child)
	require.NoError(t, child.Flags().Parse([]string{"--name", "otter", "--json", "--count", "2"}))

	_, span := tp.Tracer("test").Start(t.Context(), "cli")
	setSpanAttributes(child, span)
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range ended[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	require.Equal(t, []string{"doodlemint", "mint"}, attrs["command.path"].AsStringSlice())
	require.Equal(t, "otter", attrs["command.flag.name"].AsString())
	require.True(t, attrs["command.flag.json"].AsBool())
	require.Equal(t, int64(2), attrs["command.flag.count"].AsInt64())
}
