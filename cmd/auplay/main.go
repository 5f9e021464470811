package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"golang.org/x/term"

	"github.com/cbegin/aukernel-go"
)

// Two rows of a computer keyboard, laid out like a piano octave starting at C.
const pianoKeys = "awsedftgyhujkolp;"

const helpText = `keys: a w s e d f t g y h u j k o l p ;  play
      z / x  octave down / up
      [ / ]  cutoff down / up      - / =  resonance down / up
      1 / 2  attack down / up      3 / 4  release down / up
      space  all notes off         q      quit`

func main() {
	var (
		sampleRate  = flag.Int("sample-rate", 48000, "output sample rate")
		backendName = flag.String("backend", "ebiten", "audio backend: ebiten|oto")
		block       = flag.Int("block", 256, "render block size in frames")
		hold        = flag.Duration("hold", 400*time.Millisecond, "how long a key press holds its note")
		cutoff      = flag.Float64("cutoff", 2000, "initial filter cutoff in Hz")
		resonance   = flag.Float64("resonance", 6, "initial filter resonance in dB")
		demo        = flag.Bool("demo", false, "play the built-in arpeggio and exit")
		midiEcho    = flag.Bool("echo", false, "print every MIDI message the instrument receives")
	)
	flag.Parse()

	backend, err := aukernel.ParseBackend(*backendName)
	if err != nil {
		log.Fatal(err)
	}
	opts := []aukernel.PlayerOption{
		aukernel.WithBackend(backend),
		aukernel.WithPlayerBlockSize(*block),
	}
	if *midiEcho {
		opts = append(opts, aukernel.WithMIDIOut(func(at int64, _ uint8, data []byte) {
			log.Printf("midi @%d: %s\r", at, midi.Message(data))
		}))
	}
	pl, err := aukernel.NewPlayer(*sampleRate, opts...)
	if err != nil {
		log.Fatal(err)
	}
	pl.SetParameter(aukernel.TargetEffect, aukernel.ParamCutoff, float32(*cutoff))
	pl.SetParameter(aukernel.TargetEffect, aukernel.ParamResonance, float32(*resonance))
	if err := pl.Play(); err != nil {
		log.Fatal(err)
	}
	defer pl.Stop()

	if *demo {
		playDemo(pl)
		return
	}
	if err := runKeyboard(pl, *hold); err != nil {
		log.Fatal(err)
	}
}

func playDemo(pl *aukernel.Player) {
	notes := aukernel.DemoNotes()
	var wg sync.WaitGroup
	start := time.Now()
	var end time.Duration
	for _, n := range notes {
		on := time.Duration(n.Start * float64(time.Second))
		off := time.Duration((n.Start + n.Duration) * float64(time.Second))
		end = max(end, off)
		wg.Add(2)
		time.AfterFunc(on, func() {
			defer wg.Done()
			_ = pl.NoteOn(n.Channel, n.Key, n.Velocity)
		})
		time.AfterFunc(off, func() {
			defer wg.Done()
			_ = pl.NoteOff(n.Channel, n.Key)
		})
	}
	wg.Wait()
	// let the last release ring out
	release := time.Duration(float64(pl.Parameter(aukernel.TargetInstrument, aukernel.ParamRelease)) * float64(time.Second))
	time.Sleep(time.Until(start.Add(end + release + 100*time.Millisecond)))
	fmt.Printf("played %d notes\n", len(notes))
}

type keyboard struct {
	pl     *aukernel.Player
	hold   time.Duration
	octave int

	mu     sync.Mutex
	timers map[uint8]*time.Timer
}

func runKeyboard(pl *aukernel.Player, hold time.Duration) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return errors.New("stdin is not a terminal; use -demo for non-interactive playback")
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer term.Restore(fd, state)

	// raw mode disables output post-processing
	fmt.Print(strings.ReplaceAll(helpText, "\n", "\r\n") + "\r\n")

	kb := &keyboard{pl: pl, hold: hold, octave: 4, timers: make(map[uint8]*time.Timer)}
	buf := make([]byte, 1)
	for {
		if _, err := os.Stdin.Read(buf); err != nil {
			return err
		}
		if !kb.handle(buf[0]) {
			_ = pl.AllNotesOff()
			// give the queued all-notes-off a block to land
			time.Sleep(50 * time.Millisecond)
			return nil
		}
	}
}

// handle reacts to one key press and reports whether to keep running.
func (kb *keyboard) handle(key byte) bool {
	if i := strings.IndexByte(pianoKeys, key); i >= 0 {
		kb.play(kb.octave*12 + 12 + i)
		return true
	}
	switch key {
	case 'q', 3: // ctrl-c arrives as a byte in raw mode
		return false
	case ' ':
		_ = kb.pl.AllNotesOff()
	case 'z':
		kb.octave = max(kb.octave-1, 0)
		kb.status("octave %d", kb.octave)
	case 'x':
		kb.octave = min(kb.octave+1, 8)
		kb.status("octave %d", kb.octave)
	case '[', ']':
		kb.scale(aukernel.TargetEffect, aukernel.ParamCutoff, key == ']', math.Pow(2, 1.0/6), "cutoff %.1f Hz")
	case '-', '=':
		kb.step(aukernel.TargetEffect, aukernel.ParamResonance, key == '=', 1, "resonance %.1f dB")
	case '1', '2':
		kb.scale(aukernel.TargetInstrument, aukernel.ParamAttack, key == '2', 1.5, "attack %.3f s")
	case '3', '4':
		kb.scale(aukernel.TargetInstrument, aukernel.ParamRelease, key == '4', 1.5, "release %.3f s")
	}
	return true
}

func (kb *keyboard) play(note int) {
	if note < 0 || note > 127 {
		return
	}
	key := uint8(note)
	kb.mu.Lock()
	defer kb.mu.Unlock()
	if t, ok := kb.timers[key]; ok {
		t.Stop()
	}
	if err := kb.pl.NoteOn(0, key, 100); err != nil {
		kb.status("note %d dropped: %v", key, err)
		return
	}
	var t *time.Timer
	t = time.AfterFunc(kb.hold, func() {
		kb.mu.Lock()
		defer kb.mu.Unlock()
		// a retrigger replaced this timer
		if kb.timers[key] != t {
			return
		}
		delete(kb.timers, key)
		_ = kb.pl.NoteOff(0, key)
	})
	kb.timers[key] = t
}

func (kb *keyboard) scale(target aukernel.Target, address aukernel.ParamAddress, up bool, factor float64, format string) {
	v := float64(kb.pl.Parameter(target, address))
	if up {
		v *= factor
	} else {
		v /= factor
	}
	kb.set(target, address, v, format)
}

func (kb *keyboard) step(target aukernel.Target, address aukernel.ParamAddress, up bool, delta float64, format string) {
	v := float64(kb.pl.Parameter(target, address))
	if up {
		v += delta
	} else {
		v -= delta
	}
	kb.set(target, address, v, format)
}

func (kb *keyboard) set(target aukernel.Target, address aukernel.ParamAddress, v float64, format string) {
	kb.pl.SetParameter(target, address, float32(v))
	// the kernel clamps, so report what it kept
	kb.status(format, kb.pl.Parameter(target, address))
}

func (kb *keyboard) status(format string, args ...any) {
	fmt.Printf(format+"\r\n", args...)
}
