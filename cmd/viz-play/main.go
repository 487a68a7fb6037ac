// viz-play decodes an MP3 or WAV file, splices the effects chain into the
// playback path, and prints live feature/beat telemetry while the track
// plays through the system output device.
package main

import (
	"bytes"
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/hajimehoshi/go-mp3"

	"github.com/wearesublngual/vibe-weaver-10/analyzer"
	"github.com/wearesublngual/vibe-weaver-10/fxchain"
	"github.com/wearesublngual/vibe-weaver-10/internal/wavio"
	"github.com/wearesublngual/vibe-weaver-10/preset"
)

// lockedSource makes a PCMSource safe to share between the playback reader
// and the telemetry loop. The audio path only writes parameters and pushes
// samples; analysis happens on the main goroutine.
type lockedSource struct {
	mu  sync.Mutex
	src *analyzer.PCMSource
}

func (l *lockedSource) Bins() int { l.mu.Lock(); defer l.mu.Unlock(); return l.src.Bins() }

func (l *lockedSource) BinHz() float64 { l.mu.Lock(); defer l.mu.Unlock(); return l.src.BinHz() }

func (l *lockedSource) ReadSpectrum(dst []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.src.ReadSpectrum(dst)
}

func (l *lockedSource) Push(samples []float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.src.Push(samples)
}

// chainReader pulls 16-bit LE stereo PCM from the decoder, folds it to
// mono, runs it through the effects chain, and hands the processed audio
// back to the player in the same format.
type chainReader struct {
	src     io.Reader
	chain   *fxchain.Chain
	tap     *lockedSource
	chainMu sync.Mutex

	raw  []byte
	mono []float32
}

func newChainReader(src io.Reader, chain *fxchain.Chain, tap *lockedSource) *chainReader {
	return &chainReader{
		src:   src,
		chain: chain,
		tap:   tap,
	}
}

func (r *chainReader) Read(p []byte) (int, error) {
	// Whole stereo frames only.
	n := len(p) &^ 3
	if n == 0 {
		return 0, io.ErrShortBuffer
	}
	if len(r.raw) < n {
		r.raw = make([]byte, n)
		r.mono = make([]float32, n/4)
	}
	read, err := io.ReadFull(r.src, r.raw[:n])
	read &^= 3
	if read == 0 {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return 0, err
	}

	frames := read / 4
	for i := 0; i < frames; i++ {
		l := int16(binary.LittleEndian.Uint16(r.raw[i*4:]))
		rr := int16(binary.LittleEndian.Uint16(r.raw[i*4+2:]))
		r.mono[i] = (float32(l) + float32(rr)) / 2 / 32768
	}

	block := r.mono[:frames]
	r.chainMu.Lock()
	r.chain.ProcessInPlace(block)
	r.chainMu.Unlock()
	r.tap.Push(block)

	for i := 0; i < frames; i++ {
		v := block[i]
		if v > 1 {
			v = 1
		}
		if v < -1 {
			v = -1
		}
		s := int16(v * 32767)
		binary.LittleEndian.PutUint16(p[i*4:], uint16(s))
		binary.LittleEndian.PutUint16(p[i*4+2:], uint16(s))
	}
	if err == io.ErrUnexpectedEOF {
		err = nil // partial block played, EOF comes on the next read
	}
	return frames * 4, err
}

func (r *chainReader) update() {
	r.chainMu.Lock()
	r.chain.Update()
	r.chainMu.Unlock()
}

func openInput(path string) (io.Reader, int, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		f, err := os.Open(path)
		if err != nil {
			return nil, 0, err
		}
		dec, err := mp3.NewDecoder(f)
		if err != nil {
			return nil, 0, fmt.Errorf("decode mp3 %s: %w", path, err)
		}
		return dec, dec.SampleRate(), nil
	case ".wav":
		samples, rate, err := wavio.ReadMono(path)
		if err != nil {
			return nil, 0, err
		}
		// Expand to the 16-bit stereo stream the playback path expects.
		raw := make([]byte, len(samples)*4)
		for i, v := range samples {
			if v > 1 {
				v = 1
			}
			if v < -1 {
				v = -1
			}
			s := int16(v * 32767)
			binary.LittleEndian.PutUint16(raw[i*4:], uint16(s))
			binary.LittleEndian.PutUint16(raw[i*4+2:], uint16(s))
		}
		return bytes.NewReader(raw), rate, nil
	}
	return nil, 0, fmt.Errorf("unsupported input %s (want .mp3 or .wav)", path)
}

func meter(v float64, width int) string {
	n := int(v * float64(width))
	if n > width {
		n = width
	}
	return strings.Repeat("#", n) + strings.Repeat("-", width-n)
}

func main() {
	input := flag.String("input", "", "Input MP3 or WAV file")
	echo := flag.Float64("echo", 0, "Echo control (0-1)")
	drift := flag.Float64("drift", 0, "Drift control (0-1)")
	brk := flag.Float64("break", 0, "Break control (0-1)")
	presetPath := flag.String("preset", "", "Preset JSON file (optional)")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "viz-play: -input is required")
		os.Exit(1)
	}

	p := preset.Default()
	if *presetPath != "" {
		var err error
		p, err = preset.LoadJSON(*presetPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "viz-play: %v\n", err)
			os.Exit(1)
		}
	}
	if *echo > 0 || *drift > 0 || *brk > 0 {
		p.Effects = fxchain.Params{Echo: *echo, Drift: *drift, Break: *brk}
	}

	src, rate, err := openInput(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "viz-play: %v\n", err)
		os.Exit(1)
	}

	chain, err := fxchain.New(fxchain.DefaultConfig(rate))
	if err != nil {
		fmt.Fprintf(os.Stderr, "viz-play: %v\n", err)
		os.Exit(1)
	}
	defer chain.Dispose()
	chain.SetParams(p.Effects)

	pcm, err := analyzer.NewPCMSource(rate, 2048)
	if err != nil {
		fmt.Fprintf(os.Stderr, "viz-play: %v\n", err)
		os.Exit(1)
	}
	tap := &lockedSource{src: pcm}

	extractor, err := analyzer.New(p.Analyzer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "viz-play: %v\n", err)
		os.Exit(1)
	}
	extractor.SetSource(tap)

	reader := newChainReader(src, chain, tap)

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "viz-play: audio context: %v\n", err)
		os.Exit(1)
	}
	<-ready

	player := ctx.NewPlayer(reader)
	player.Play()
	defer player.Close()

	fmt.Printf("Playing %s @ %d Hz (echo=%.2f drift=%.2f break=%.2f)\n",
		*input, rate, p.Effects.Echo, p.Effects.Drift, p.Effects.Break)

	ticker := time.NewTicker(time.Second / 60)
	defer ticker.Stop()
	beats := 0
	for player.IsPlaying() {
		<-ticker.C
		reader.update()
		frame := extractor.Analyze()
		if frame.BeatDetected {
			beats++
		}
		mark := " "
		if frame.BeatDetected {
			mark = "*"
		}
		fmt.Printf("\r%s bass[%s] mid[%s] high[%s] energy[%s] beats=%d ",
			mark, meter(frame.Bass, 12), meter(frame.Mid, 12), meter(frame.High, 12), meter(frame.Energy, 12), beats)
	}
	fmt.Printf("\nDone: %d beats detected\n", beats)
}
