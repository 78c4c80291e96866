package formatter

import (
	"bytes"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastjson"

	"github.com/Agnonimoose/jogger/core"
)

var recCreated = time.Date(2026, 5, 4, 12, 30, 15, 0, time.UTC)

// testRecord returns a fully-populated record with a fixed creation
// time so formatter output is byte-stable.
func testRecord() *core.Record {
	return &core.Record{
		Name:        "svc.worker",
		Level:       core.InfoLevel,
		Created:     recCreated,
		Msg:         "hello %s",
		Args:        []any{"world"},
		PathName:    "/src/svc/worker.go",
		FileName:    "worker.go",
		Module:      "worker",
		LineNo:      87,
		FuncName:    "svc.(*Worker).Run",
		Process:     4242,
		ProcessName: "svc",
		Extra:       core.Extra{},
	}
}

// mustFormat formats rec and parses the emitted line back.
func mustFormat(t *testing.T, f *JSONFormatter, rec *core.Record) *fastjson.Value {
	t.Helper()
	out, err := f.Format(rec)
	require.NoError(t, err)
	v, err := fastjson.ParseBytes(out)
	require.NoError(t, err, "formatter emitted invalid JSON: %s", out)
	return v
}

func TestJSONFormatter_Basic(t *testing.T) {
	f, err := NewJSONFormatter(JSONConfig{
		Config: Config{Template: "%(levelname) %(message)"},
	})
	require.NoError(t, err)

	out, err := f.Format(testRecord())
	require.NoError(t, err)

	assert.Equal(t, "{\"levelname\":\"INFO\",\"message\":\"hello world\"}\n", string(out))
	assert.Equal(t, []string{"levelname", "message"}, f.Fields())
}

func TestJSONFormatter_TemplateOrderPreserved(t *testing.T) {
	f, err := NewJSONFormatter(JSONConfig{
		Config: Config{Template: "{message} {name} {levelname}", Style: StyleBrace},
	})
	require.NoError(t, err)

	out, err := f.Format(testRecord())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), `{"message":"hello world","name":"svc.worker","levelname":"INFO"}`),
		"fields must appear in template order, got: %s", out)
}

func TestJSONFormatter_DollarStyle(t *testing.T) {
	f, err := NewJSONFormatter(JSONConfig{
		Config: Config{Template: "${levelno} ${module}", Style: StyleDollar},
	})
	require.NoError(t, err)

	v := mustFormat(t, f, testRecord())
	assert.Equal(t, 1, v.GetInt("levelno"))
	assert.Equal(t, "worker", string(v.GetStringBytes("module")))
}

func TestJSONFormatter_MissingFieldIsNull(t *testing.T) {
	f, err := NewJSONFormatter(JSONConfig{
		Config: Config{Template: "%(message) %(exc_info) %(stack_info)"},
	})
	require.NoError(t, err)

	v := mustFormat(t, f, testRecord())
	require.True(t, v.Exists("exc_info"))
	assert.Equal(t, fastjson.TypeNull, v.Get("exc_info").Type())
	assert.Equal(t, fastjson.TypeNull, v.Get("stack_info").Type())
}

func TestJSONFormatter_EmptyTemplate(t *testing.T) {
	f, err := NewJSONFormatter(JSONConfig{
		StaticFields: map[string]any{"service": "api"},
	})
	require.NoError(t, err)

	rec := testRecord()
	rec.Extra["request_id"] = "r-1"

	v := mustFormat(t, f, rec)
	assert.False(t, v.Exists("message"), "empty template must not force built-ins into output")
	assert.Equal(t, "api", string(v.GetStringBytes("service")))
	assert.Equal(t, "r-1", string(v.GetStringBytes("request_id")))
}

func TestJSONFormatter_ReservedFieldIsolation(t *testing.T) {
	f, err := NewJSONFormatter(JSONConfig{
		Config: Config{Template: "%(module) %(message)"},
	})
	require.NoError(t, err)

	rec := testRecord()
	rec.Extra["module"] = "forged"
	rec.Extra["created"] = "forged"

	v := mustFormat(t, f, rec)
	assert.Equal(t, "worker", string(v.GetStringBytes("module")),
		"extras must never override a built-in through the extras path")
	assert.False(t, v.Exists("created"), "reserved names outside the template stay excluded")
}

func TestJSONFormatter_RenamePrecedence(t *testing.T) {
	f, err := NewJSONFormatter(JSONConfig{
		Config:       Config{Template: "%(levelname) %(message)"},
		RenameFields: map[string]string{"levelname": "severity"},
	})
	require.NoError(t, err)

	v := mustFormat(t, f, testRecord())
	assert.Equal(t, "INFO", string(v.GetStringBytes("severity")))
	assert.False(t, v.Exists("levelname"), "renamed field must not appear under its original name")
}

func TestJSONFormatter_StaticFieldsOverwrittenByPayload(t *testing.T) {
	f, err := NewJSONFormatter(JSONConfig{
		Config:       Config{Template: "%(message)"},
		StaticFields: map[string]any{"service": "x", "env": "prod"},
	})
	require.NoError(t, err)

	rec := testRecord()
	rec.Msg = map[string]any{"service": "y", "event": "login"}
	rec.Args = nil

	v := mustFormat(t, f, rec)
	assert.Equal(t, "y", string(v.GetStringBytes("service")), "message fields overwrite static fields")
	assert.Equal(t, "prod", string(v.GetStringBytes("env")))
	assert.Equal(t, "login", string(v.GetStringBytes("event")))
}

func TestJSONFormatter_ExtrasOverwriteEarlierSteps(t *testing.T) {
	f, err := NewJSONFormatter(JSONConfig{
		StaticFields: map[string]any{"host": "static"},
	})
	require.NoError(t, err)

	rec := testRecord()
	rec.Extra["host"] = "extra"

	v := mustFormat(t, f, rec)
	assert.Equal(t, "extra", string(v.GetStringBytes("host")),
		"colliding extras silently overwrite earlier fields")
}

func TestJSONFormatter_TimestampInjection(t *testing.T) {
	f, err := NewJSONFormatter(JSONConfig{
		Config:       Config{Template: "%(message)"},
		StaticFields: map[string]any{"timestamp": "collision"},
		Timestamp:    true,
	})
	require.NoError(t, err)

	rec := testRecord()
	rec.Extra["timestamp"] = "extra collision"

	v := mustFormat(t, f, rec)
	assert.Equal(t, "2026-05-04T12:30:15Z", string(v.GetStringBytes("timestamp")),
		"injected timestamp is the final overwrite")
}

func TestJSONFormatter_TimestampKey(t *testing.T) {
	f, err := NewJSONFormatter(JSONConfig{TimestampKey: "@timestamp"})
	require.NoError(t, err)

	v := mustFormat(t, f, testRecord())
	assert.Equal(t, "2026-05-04T12:30:15Z", string(v.GetStringBytes("@timestamp")))
}

func TestJSONFormatter_TimestampIsUTC(t *testing.T) {
	f, err := NewJSONFormatter(JSONConfig{Timestamp: true})
	require.NoError(t, err)

	rec := testRecord()
	rec.Created = time.Date(2026, 5, 4, 14, 30, 15, 0, time.FixedZone("CEST", 2*3600))

	v := mustFormat(t, f, rec)
	assert.Equal(t, "2026-05-04T12:30:15Z", string(v.GetStringBytes("timestamp")))
}

func TestJSONFormatter_NeverThrows(t *testing.T) {
	f, err := NewJSONFormatter(JSONConfig{
		Config: Config{Template: "%(message)"},
	})
	require.NoError(t, err)

	rec := testRecord()
	rec.Msg = map[string]any{
		"ch":      make(chan int),
		"fn":      func() {},
		"marshal": panickyMarshaler{},
	}
	rec.Extra["bad"] = unmarshalable{C: make(chan int)}

	out, err := f.Format(rec)
	require.NoError(t, err, "formatting must not fail for unencodable values")

	v, err := fastjson.ParseBytes(out)
	require.NoError(t, err)
	for _, key := range []string{"ch", "fn", "marshal", "bad"} {
		field := v.Get(key)
		require.NotNil(t, field, "field %q missing", key)
		isStringOrNull := field.Type() == fastjson.TypeString || field.Type() == fastjson.TypeNull
		assert.True(t, isStringOrNull, "field %q should degrade to string or null, got %s", key, field.Type())
	}
}

func TestJSONFormatter_DictMessage(t *testing.T) {
	f, err := NewJSONFormatter(JSONConfig{
		Config: Config{Template: "%(message)"},
	})
	require.NoError(t, err)

	rec := testRecord()
	rec.Msg = map[string]any{"event": "login", "attempts": 3}
	rec.Args = nil

	v := mustFormat(t, f, rec)
	assert.Equal(t, fastjson.TypeNull, v.Get("message").Type(),
		"structured message suppresses the formatted-message field")
	assert.Equal(t, "login", string(v.GetStringBytes("event")))
	assert.Equal(t, 3, v.GetInt("attempts"))
}

func TestJSONFormatter_ExceptionEnrichment(t *testing.T) {
	f, err := NewJSONFormatter(JSONConfig{
		Config: Config{Template: "%(message)"},
	})
	require.NoError(t, err)

	rec := testRecord()
	rec.Err = errors.New("database gone")

	v := mustFormat(t, f, rec)
	excInfo := string(v.GetStringBytes("exc_info"))
	assert.Contains(t, excInfo, "database gone")
	assert.Contains(t, excInfo, "json_test.go", "wrapped errors render with their stack trace")
}

func TestJSONFormatter_ExceptionWithoutStack(t *testing.T) {
	f, err := NewJSONFormatter(JSONConfig{})
	require.NoError(t, err)

	rec := testRecord()
	rec.Err = stderrors.New("plain failure")

	v := mustFormat(t, f, rec)
	assert.Equal(t, "plain failure", string(v.GetStringBytes("exc_info")))
}

func TestJSONFormatter_PayloadExcInfoPreserved(t *testing.T) {
	f, err := NewJSONFormatter(JSONConfig{})
	require.NoError(t, err)

	rec := testRecord()
	rec.Msg = map[string]any{"exc_info": "original trace"}
	rec.Args = nil
	rec.Err = stderrors.New("should not appear")

	v := mustFormat(t, f, rec)
	assert.Equal(t, "original trace", string(v.GetStringBytes("exc_info")),
		"a payload-supplied exc_info is preserved verbatim")
}

func TestJSONFormatter_ExcTextFallback(t *testing.T) {
	f, err := NewJSONFormatter(JSONConfig{})
	require.NoError(t, err)

	rec := testRecord()
	rec.ExcText = "cached exception text"

	v := mustFormat(t, f, rec)
	assert.Equal(t, "cached exception text", string(v.GetStringBytes("exc_info")))
}

func TestJSONFormatter_StackInfo(t *testing.T) {
	f, err := NewJSONFormatter(JSONConfig{})
	require.NoError(t, err)

	rec := testRecord()
	rec.Stack = "goroutine 1 [running]:\nmain.main()"

	v := mustFormat(t, f, rec)
	assert.Equal(t, rec.Stack, string(v.GetStringBytes("stack_info")))

	// A payload-supplied stack_info wins over the record's stack text.
	rec2 := testRecord()
	rec2.Msg = map[string]any{"stack_info": "payload stack"}
	rec2.Args = nil
	rec2.Stack = "record stack"

	v2 := mustFormat(t, f, rec2)
	assert.Equal(t, "payload stack", string(v2.GetStringBytes("stack_info")))
}

func TestJSONFormatter_IdempotentConstruction(t *testing.T) {
	cfg := func() JSONConfig {
		return JSONConfig{
			Config:       Config{Template: "%(asctime) %(levelname) %(name) %(message)"},
			RenameFields: map[string]string{"levelname": "level"},
			StaticFields: map[string]any{"service": "api", "env": "prod", "zone": "eu-1"},
			Timestamp:    true,
			Prefix:       "app: ",
		}
	}

	f1, err := NewJSONFormatter(cfg())
	require.NoError(t, err)
	f2, err := NewJSONFormatter(cfg())
	require.NoError(t, err)

	rec := testRecord()
	rec.Extra["b"] = 2
	rec.Extra["a"] = 1

	out1, err := f1.Format(rec)
	require.NoError(t, err)
	out2, err := f2.Format(rec)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(out1, out2), "identical configuration must yield byte-identical output:\n%s\n%s", out1, out2)
}

func TestJSONFormatter_Prefix(t *testing.T) {
	f, err := NewJSONFormatter(JSONConfig{
		Config: Config{Template: "%(message)"},
		Prefix: "LOG> ",
	})
	require.NoError(t, err)

	out, err := f.Format(testRecord())
	require.NoError(t, err)
	assert.Equal(t, "LOG> {\"message\":\"hello world\"}\n", string(out))
}

func TestJSONFormatter_Indent(t *testing.T) {
	f, err := NewJSONFormatter(JSONConfig{
		Config: Config{Template: "%(message)"},
		Indent: 2,
	})
	require.NoError(t, err)

	out, err := f.Format(testRecord())
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"message\": \"hello world\"\n}\n", string(out))
}

func TestJSONFormatter_EnsureASCII(t *testing.T) {
	f, err := NewJSONFormatter(JSONConfig{
		Config:      Config{Template: "%(message)"},
		EnsureASCII: true,
	})
	require.NoError(t, err)

	rec := testRecord()
	rec.Msg = "héllo 🎉"
	rec.Args = nil

	out, err := f.Format(rec)
	require.NoError(t, err)
	for i, c := range out {
		require.LessOrEqual(t, c, byte(0x7f), "byte %d of %q is not ASCII", i, out)
	}
	s := string(out)
	assert.Contains(t, s, "u00e9", "é escapes as a basic-plane sequence")
	assert.Contains(t, s, "ud83c", "runes outside the basic plane escape as surrogate pairs")
	assert.Contains(t, s, "udf89")

	v, err := fastjson.ParseBytes(out)
	require.NoError(t, err)
	assert.Equal(t, "héllo 🎉", string(v.GetStringBytes("message")), "escapes decode back to the original text")
}

func TestJSONFormatter_HTMLEscaping(t *testing.T) {
	rec := testRecord()
	rec.Msg = "<b>&</b>"
	rec.Args = nil

	f, err := NewJSONFormatter(JSONConfig{Config: Config{Template: "%(message)"}})
	require.NoError(t, err)
	out, err := f.Format(rec)
	require.NoError(t, err)
	assert.Contains(t, string(out), "u003c", "angle brackets are escaped by default")
	assert.NotContains(t, string(out), "<b>")

	f, err = NewJSONFormatter(JSONConfig{
		Config:            Config{Template: "%(message)"},
		DisableHTMLEscape: true,
	})
	require.NoError(t, err)
	out, err = f.Format(rec)
	require.NoError(t, err)
	assert.Contains(t, string(out), "<b>&</b>")
}

func TestJSONFormatter_Asctime(t *testing.T) {
	f, err := NewJSONFormatter(JSONConfig{
		Config: Config{
			Template:        "%(asctime) %(message)",
			TimestampFormat: "2006-01-02 15:04:05",
		},
	})
	require.NoError(t, err)

	v := mustFormat(t, f, testRecord())
	assert.Equal(t, "2026-05-04 12:30:15", string(v.GetStringBytes("asctime")))
}

func TestJSONFormatter_UnderscoreExtrasSkipped(t *testing.T) {
	f, err := NewJSONFormatter(JSONConfig{})
	require.NoError(t, err)

	rec := testRecord()
	rec.Extra["_private"] = "hidden"
	rec.Extra["public"] = "visible"

	v := mustFormat(t, f, rec)
	assert.False(t, v.Exists("_private"))
	assert.Equal(t, "visible", string(v.GetStringBytes("public")))
}

func TestJSONFormatter_ReservedAttrsOverride(t *testing.T) {
	f, err := NewJSONFormatter(JSONConfig{
		ReservedAttrs: []string{"name"},
	})
	require.NoError(t, err)

	rec := testRecord()
	rec.Extra["levelname"] = "extra levelname"
	rec.Extra["name"] = "extra name"

	v := mustFormat(t, f, rec)
	assert.Equal(t, "extra levelname", string(v.GetStringBytes("levelname")),
		"a narrowed reserved set admits previously-reserved extras")
	assert.False(t, v.Exists("name"), "overridden reserved set still excludes its members")
}

func TestJSONFormatter_CustomConverter(t *testing.T) {
	f, err := NewJSONFormatter(JSONConfig{
		Config:    Config{Template: "%(message)"},
		Timestamp: true,
		Converter: func(v any) (any, error) {
			if ts, ok := v.(time.Time); ok {
				return ts.Unix(), nil
			}
			return nil, nil
		},
	})
	require.NoError(t, err)

	v := mustFormat(t, f, testRecord())
	assert.Equal(t, recCreated.Unix(), v.GetInt64("timestamp"),
		"a custom converter fully replaces the built-in conversion chain")
}

func TestJSONFormatter_CustomSerializer(t *testing.T) {
	var sawRaw bool
	f, err := NewJSONFormatter(JSONConfig{
		Config:    Config{Template: "%(message)"},
		Timestamp: true,
		Serializer: func(obj *LogObject) ([]byte, error) {
			if ts, ok := obj.Get("timestamp"); ok {
				_, sawRaw = ts.(time.Time)
			}
			return []byte(`{"custom":true}`), nil
		},
	})
	require.NoError(t, err)

	out, err := f.Format(testRecord())
	require.NoError(t, err)
	assert.Equal(t, "{\"custom\":true}\n", string(out))
	assert.True(t, sawRaw, "without a converter the serializer receives raw record values")
}

func TestJSONFormatter_ProcessObjectHook(t *testing.T) {
	f, err := NewJSONFormatter(JSONConfig{
		Config: Config{Template: "%(message) %(levelname)"},
		ProcessObject: func(rec *core.Record, obj *LogObject) *LogObject {
			obj.Delete("levelname")
			obj.Set("checked", true)
			return obj
		},
	})
	require.NoError(t, err)

	v := mustFormat(t, f, testRecord())
	assert.False(t, v.Exists("levelname"))
	assert.True(t, v.GetBool("checked"))
}

func TestJSONFormatter_FormatTo(t *testing.T) {
	f, err := NewJSONFormatter(JSONConfig{
		Config: Config{Template: "%(message)"},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.FormatTo(testRecord(), &buf))
	assert.Equal(t, "{\"message\":\"hello world\"}\n", buf.String())
}

func BenchmarkJSONFormatter(b *testing.B) {
	f, err := NewJSONFormatter(JSONConfig{
		Config: Config{Template: "%(asctime) %(levelname) %(name) %(message)"},
	})
	if err != nil {
		b.Fatal(err)
	}

	rec := testRecord()
	rec.Extra["key1"] = "value1"
	rec.Extra["key2"] = 42

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = f.Format(rec)
	}
}

func BenchmarkJSONFormatter_WithTimestamp(b *testing.B) {
	f, err := NewJSONFormatter(JSONConfig{
		Config:       Config{Template: "%(message)"},
		StaticFields: map[string]any{"service": "bench"},
		Timestamp:    true,
	})
	if err != nil {
		b.Fatal(err)
	}

	rec := testRecord()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = f.Format(rec)
	}
}
