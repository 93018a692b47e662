package components

import (
	"bufio"
	"io"
	str "strings"

	"github.com/klauspost/pgzip"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/rdfio/rdfprep/internal/logs"
)

// DefaultMaxLineSize bounds the length of a single input line.
const DefaultMaxLineSize = 16 * 1024 * 1024

// FileReader is a process that reads files, based on file names it receives on
// the FileReader.InFileName port / channel, and writes out the content line by
// line as strings on the FileReader.OutLine port / channel. Files ending in
// .gz are decompressed on the fly. Lines longer than MaxLineSize are skipped
// and counted.
type FileReader struct {
	errHolder
	InFileName    chan string
	OutLine       chan string
	MaxLineSize   int
	fs            afero.Fs
	oversizeLines int64
}

// NewOsFileReader returns an initialized FileReader, initialized with an OS
// (normal) file system
func NewOsFileReader() *FileReader {
	return NewFileReader(afero.NewOsFs())
}

// NewFileReader returns an initialized FileReader, initialized with an afero
// file system provided as a parameter
func NewFileReader(fileSystem afero.Fs) *FileReader {
	return &FileReader{
		InFileName:  make(chan string, BUFSIZE),
		OutLine:     make(chan string, BUFSIZE),
		MaxLineSize: DefaultMaxLineSize,
		fs:          fileSystem,
	}
}

// Run runs the FileReader process. After the first failing file it keeps
// draining InFileName without reading anything more.
func (p *FileReader) Run() {
	defer close(p.OutLine)

	for fileName := range p.InFileName {
		if p.err != nil {
			continue
		}
		logs.Debugf("Starting processing file %s\n", fileName)
		if err := p.readFile(fileName); err != nil {
			p.fail(err)
		}
	}
}

func (p *FileReader) readFile(fileName string) error {
	fh, err := p.fs.Open(fileName)
	if err != nil {
		return errors.Wrapf(err, "opening %s", fileName)
	}
	defer fh.Close()

	var r io.Reader = fh
	if str.HasSuffix(fileName, ".gz") {
		zr, err := pgzip.NewReader(fh)
		if err != nil {
			return errors.Wrapf(err, "opening gzip stream %s", fileName)
		}
		defer zr.Close()
		r = zr
	}

	lines, skipped, err := p.readLines(r)
	p.oversizeLines += skipped
	if err != nil {
		return errors.Wrapf(err, "reading %s after %d lines", fileName, lines)
	}
	logs.Infof("Read %d lines from %s\n", lines, fileName)
	return nil
}

// readLines sends every line of r on OutLine, without its line ending. Lines
// over MaxLineSize are read past and dropped.
func (p *FileReader) readLines(r io.Reader) (lines, skipped int64, err error) {
	br := bufio.NewReaderSize(r, 64*1024)
	var line []byte
	tooLong := false
	for {
		chunk, rerr := br.ReadSlice('\n')
		if !tooLong {
			// Room for a trailing \r\n.
			if len(line)+len(chunk) > p.MaxLineSize+2 {
				tooLong = true
				line = line[:0]
			} else {
				line = append(line, chunk...)
			}
		}
		if rerr == bufio.ErrBufferFull {
			continue
		}
		if rerr != nil && rerr != io.EOF {
			return lines, skipped, rerr
		}
		if tooLong {
			skipped++
			logs.Debugf("Skipped line %d longer than %d bytes\n", lines+skipped, p.MaxLineSize)
		} else if len(line) > 0 {
			text := str.TrimSuffix(str.TrimSuffix(string(line), "\n"), "\r")
			if len(text) > p.MaxLineSize {
				skipped++
			} else {
				p.OutLine <- text
				lines++
			}
		}
		line, tooLong = line[:0], false
		if rerr == io.EOF {
			return lines, skipped, nil
		}
	}
}

// OversizeLines is the number of lines skipped for being longer than
// MaxLineSize. Only call it after Run has returned.
func (p *FileReader) OversizeLines() int64 {
	return p.oversizeLines
}
