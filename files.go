package profile

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// All code writing files is here

const (
	Sep         = ','
	EOL         = '\n'
	StringDelim = '"'
	FloatFormat = "%.2f"
	Header      = true
)

// FieldNames are the columns written by WriteDocument.
var FieldNames = []string{"path", "name", "relation", "value", "error", "numerator", "numerator_error"}

// Files writes delimited text. A null number is written as an empty field.
type Files struct {
	FieldNames  []string
	EOL         byte
	Sep         byte
	StringDelim byte
	FloatFormat string
	Header      bool

	w        io.Writer
	file     *os.File
	fileName string
}

func NewFiles() *Files {
	f := &Files{
		FieldNames:  FieldNames,
		EOL:         byte(EOL),
		Sep:         byte(Sep),
		StringDelim: byte(StringDelim),
		FloatFormat: FloatFormat,
		Header:      Header,
	}

	return f
}

func (f *Files) Create(fileName string) error {
	var e error
	f.fileName = fileName
	if f.file, e = os.Create(fileName); e != nil {
		return e
	}

	f.w = f.file

	return nil
}

// SetWriter directs output to w instead of a file.
func (f *Files) SetWriter(w io.Writer) {
	f.w = w
}

func (f *Files) FileName() string {
	return f.fileName
}

func (f *Files) Close() error {
	if f.file != nil {
		return f.file.Close()
	}

	return fmt.Errorf("no open files")
}

func (f *Files) WriteLine(v []any) error {
	if f.w == nil {
		return fmt.Errorf("no output set in *Files")
	}

	var line []byte
	for ind := 0; ind < len(v); ind++ {
		var lx []byte
		switch d := v[ind].(type) {
		case float64:
			lx = []byte(fmt.Sprintf(f.FloatFormat, d))
		case int:
			lx = []byte(fmt.Sprintf("%v", d))
		case string:
			lx = f.quote(d)
		case *float64:
			if d != nil {
				lx = []byte(fmt.Sprintf(f.FloatFormat, *d))
			}
		case *string:
			if d != nil {
				lx = f.quote(*d)
			}
		case nil:
		default:
			lx = []byte("#err#")
		}

		line = append(line, lx...)
		if ind < len(v)-1 {
			line = append(line, f.Sep)
		}
	}

	line = append(line, f.EOL)
	_, e := f.w.Write(line)

	return e
}

func (f *Files) WriteHeader() error {
	if !f.Header {
		return nil
	}

	if f.FieldNames == nil {
		return fmt.Errorf("field names not set in *Files")
	}

	if f.w == nil {
		return fmt.Errorf("no output set in *Files")
	}

	_, e := io.WriteString(f.w, strings.Join(f.FieldNames, string(rune(f.Sep)))+string(rune(f.EOL)))

	return e
}

// WriteDocument writes the header and then one line per item and relation of doc, in document order.
// Enhanced items write only the relations they kept.
func (f *Files) WriteDocument(doc *Document) error {
	if e := f.WriteHeader(); e != nil {
		return e
	}

	for _, ref := range doc.Items() {
		path := strings.Join(ref.Path, "/")

		var (
			name                                string
			values, errs, numerators, numErrors RelationValues
		)

		if enh := ref.Node.Enhanced(); enh != nil {
			name, values, errs, numerators, numErrors = enh.Name, enh.Values, enh.Errors, enh.Numerators, enh.NumeratorErrors
		} else {
			item := ref.Node.Item()
			name, values, errs, numerators, numErrors = item.Name, item.Values, item.Errors, item.Numerators, item.NumeratorErrors
		}

		for _, rv := range values {
			moeVal, _ := errs.Get(rv.Relation)
			num, _ := numerators.Get(rv.Relation)
			numErr, _ := numErrors.Get(rv.Relation)

			if e := f.WriteLine([]any{path, name, rv.Relation, rv.Value, moeVal, num, numErr}); e != nil {
				return e
			}
		}
	}

	return nil
}

// quote delimits s, doubling any delimiter inside it
func (f *Files) quote(s string) []byte {
	delim := string(f.StringDelim)
	lx := append([]byte{f.StringDelim}, []byte(strings.ReplaceAll(s, delim, delim+delim))...)
	return append(lx, f.StringDelim)
}
