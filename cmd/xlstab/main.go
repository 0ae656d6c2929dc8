// Command xlstab converts the worksheets of a legacy binary spreadsheet
// to CSV.
package main

import (
	"bufio"
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/wangxuesong29/exceltk/biff"
	"github.com/wangxuesong29/exceltk/xlsread"
)

const defaultSheetDelimiter = "--------"

var version = "dev"

type quotingMode int

const (
	quotingNone quotingMode = iota
	quotingMinimal
	quotingAll
)

type options struct {
	allSheets      bool
	sheetID        int
	sheetName      string
	delimiter      rune
	dateFormat     string
	sheetDelimiter string
	quoting        quotingMode
	namePattern    *regexp.Regexp
	loose          bool
	verbosity      int
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("xlstab", flag.ContinueOnError)
	fs.SetOutput(stderr)

	showVersion := fs.Bool("v", false, "show version")
	fs.BoolVar(showVersion, "version", false, "show version")

	allSheets := fs.Bool("a", false, "export all sheets")
	fs.BoolVar(allSheets, "all", false, "export all sheets")

	sheetID := fs.Int("s", -1, "sheet number to convert (1-based)")
	fs.IntVar(sheetID, "sheet", -1, "sheet number to convert (1-based)")

	sheetName := fs.String("n", "", "sheet name to convert")
	fs.StringVar(sheetName, "sheetname", "", "sheet name to convert")

	delimiterFlag := fs.String("d", ",", "column delimiter, 'tab' or 'x09' for a tab")
	fs.StringVar(delimiterFlag, "delimiter", ",", "column delimiter, 'tab' or 'x09' for a tab")

	dateFormat := fs.String("f", "", "date format (ex. DD.MM.YYYY hh:mm:ss)")
	fs.StringVar(dateFormat, "dateformat", "", "date format (ex. DD.MM.YYYY hh:mm:ss)")

	sheetDelimiter := fs.String("p", defaultSheetDelimiter, "separator line between sheets, '' for none")
	fs.StringVar(sheetDelimiter, "sheetdelimiter", defaultSheetDelimiter, "separator line between sheets, '' for none")

	quotingFlag := fs.String("q", "minimal", "field quoting, 'none' 'minimal' or 'all'")
	fs.StringVar(quotingFlag, "quoting", "minimal", "field quoting, 'none' 'minimal' or 'all'")

	namePattern := fs.String("I", "", "only convert sheets whose name matches the pattern")
	fs.StringVar(namePattern, "include_sheet_pattern", "", "only convert sheets whose name matches the pattern")

	loose := fs.Bool("loose", false, "tolerate truncated trailing records")
	verbosity := fs.Int("verbosity", 0, "diagnostic output level")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *showVersion {
		fmt.Fprintln(stdout, version)
		return 0
	}

	rest := fs.Args()
	if len(rest) < 1 {
		fmt.Fprintln(stderr, "usage: xlstab [flags] xlsfile [outfile]")
		return 2
	}
	if *sheetName != "" && (*allSheets || *sheetID > 0) {
		fmt.Fprintln(stderr, "cannot combine --sheetname with --sheet or --all")
		return 2
	}

	delimiter, err := parseDelimiter(*delimiterFlag)
	if err != nil {
		fmt.Fprintf(stderr, "invalid delimiter: %v\n", err)
		return 2
	}
	quoting, err := parseQuoting(*quotingFlag)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	var nameRe *regexp.Regexp
	if *namePattern != "" {
		nameRe, err = regexp.Compile(*namePattern)
		if err != nil {
			fmt.Fprintf(stderr, "invalid sheet pattern: %v\n", err)
			return 2
		}
	}

	opts := options{
		allSheets:      *allSheets,
		sheetID:        *sheetID,
		sheetName:      *sheetName,
		delimiter:      delimiter,
		dateFormat:     *dateFormat,
		sheetDelimiter: *sheetDelimiter,
		quoting:        quoting,
		namePattern:    nameRe,
		loose:          *loose,
		verbosity:      *verbosity,
	}

	out := stdout
	if len(rest) > 1 {
		f, err := os.Create(rest[1])
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		defer f.Close()
		out = f
	}

	if err := convert(rest[0], stdin, out, stderr, opts); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func convert(inputPath string, stdin io.Reader, out, stderr io.Writer, opts options) error {
	readOpts := &xlsread.Options{Verbosity: opts.verbosity, Logf: stderr}
	if opts.loose {
		readOpts.Mode = biff.Loose
	}

	var rd *xlsread.Reader
	var err error
	if inputPath == "-" {
		rd, err = xlsread.Open(stdin, readOpts)
	} else {
		rd, err = xlsread.OpenFile(inputPath, readOpts)
	}
	if err != nil {
		return err
	}
	defer rd.Close()

	tables := rd.ProduceAll()
	selected, err := selectTables(tables, opts)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(out)
	cw := &csvWriter{w: w, delimiter: opts.delimiter, quoting: opts.quoting}
	for i, tb := range selected {
		if i > 0 && opts.sheetDelimiter != "" {
			fmt.Fprintln(w, opts.sheetDelimiter)
		}
		for _, row := range tb.Rows {
			if err := cw.writeRow(row, opts.dateFormat); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

func selectTables(tables []xlsread.Table, opts options) ([]xlsread.Table, error) {
	if opts.sheetName != "" {
		for _, tb := range tables {
			if tb.Name == opts.sheetName {
				return []xlsread.Table{tb}, nil
			}
		}
		return nil, fmt.Errorf("sheet %q not found", opts.sheetName)
	}
	if opts.sheetID > 0 {
		if opts.sheetID > len(tables) {
			return nil, fmt.Errorf("sheet index %d out of range", opts.sheetID)
		}
		return tables[opts.sheetID-1 : opts.sheetID], nil
	}
	if opts.allSheets {
		var selected []xlsread.Table
		for _, tb := range tables {
			if opts.namePattern != nil && !opts.namePattern.MatchString(tb.Name) {
				continue
			}
			selected = append(selected, tb)
		}
		if len(selected) == 0 {
			return nil, fmt.Errorf("no sheets matched selection")
		}
		return selected, nil
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("no sheets found")
	}
	return tables[:1], nil
}

func parseDelimiter(value string) (rune, error) {
	switch strings.ToLower(value) {
	case "tab", "x09":
		return '\t', nil
	case "":
		return 0, fmt.Errorf("delimiter cannot be empty")
	}
	if strings.HasPrefix(value, "x") && len(value) == 3 {
		decoded, err := strconv.ParseUint(value[1:], 16, 8)
		if err != nil {
			return 0, err
		}
		return rune(decoded), nil
	}
	return []rune(value)[0], nil
}

func parseQuoting(value string) (quotingMode, error) {
	switch strings.ToLower(value) {
	case "none":
		return quotingNone, nil
	case "minimal":
		return quotingMinimal, nil
	case "all":
		return quotingAll, nil
	default:
		return quotingMinimal, fmt.Errorf("unsupported quoting: %s", value)
	}
}

type csvWriter struct {
	w         io.Writer
	delimiter rune
	quoting   quotingMode
}

func (cw *csvWriter) writeRow(row []xlsread.Value, dateFormat string) error {
	var buf bytes.Buffer
	for i, v := range row {
		if i > 0 {
			buf.WriteRune(cw.delimiter)
		}
		text := v.String()
		if v.Kind == xlsread.KindDate && dateFormat != "" {
			text = v.FormatDate(dateFormat)
		}
		buf.WriteString(cw.formatField(text))
	}
	buf.WriteByte('\n')
	_, err := cw.w.Write(buf.Bytes())
	return err
}

func (cw *csvWriter) formatField(text string) string {
	if !cw.needsQuote(text) {
		return text
	}
	return `"` + strings.ReplaceAll(text, `"`, `""`) + `"`
}

func (cw *csvWriter) needsQuote(text string) bool {
	switch cw.quoting {
	case quotingAll:
		return true
	case quotingMinimal:
		return strings.ContainsRune(text, cw.delimiter) || strings.ContainsAny(text, "\"\r\n")
	default:
		return false
	}
}
