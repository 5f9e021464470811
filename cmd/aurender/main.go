package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/cbegin/aukernel-go"
)

func main() {
	var (
		sampleRate = flag.Int("sample-rate", 44100, "output sample rate")
		midPath    = flag.String("midi", "", "Standard MIDI File to render (default: built-in demo)")
		outPath    = flag.String("out", "out.wav", "output WAV path")
		block      = flag.Int("block", aukernel.DefaultBlockSize, "render block size in frames")
		tail       = flag.Float64("tail", 1.0, "seconds rendered after the last event")
		attack     = flag.Float64("attack", 0.01, "instrument attack in seconds")
		release    = flag.Float64("release", 0.1, "instrument release in seconds")
		cutoff     = flag.Float64("cutoff", 2000, "filter cutoff in Hz")
		resonance  = flag.Float64("resonance", 6, "filter resonance in dB")
		sweepDepth = flag.Float64("sweep-depth", 0, "cutoff LFO depth in Hz (0 = no sweep)")
		sweepRate  = flag.Float64("sweep-rate", 0.5, "cutoff LFO rate in Hz")
		sweepWave  = flag.String("sweep-wave", "sine", "cutoff LFO waveform: saw|square|triangle|random|sine")
		exportDemo = flag.String("export-demo", "", "write the built-in demo as a MIDI file and exit")
		verbose    = flag.Bool("v", false, "log progress")
	)
	flag.Parse()

	if *exportDemo != "" {
		if err := writeDemoMIDI(*exportDemo); err != nil {
			log.Fatal(err)
		}
		return
	}

	tl, err := loadTimeline(*midPath, float64(*sampleRate))
	if err != nil {
		log.Fatal(err)
	}

	opts := []aukernel.RenderOption{
		aukernel.WithBlockSize(*block),
		aukernel.WithTail(*tail),
		aukernel.WithParameter(aukernel.TargetInstrument, aukernel.ParamAttack, float32(*attack)),
		aukernel.WithParameter(aukernel.TargetInstrument, aukernel.ParamRelease, float32(*release)),
		aukernel.WithParameter(aukernel.TargetEffect, aukernel.ParamCutoff, float32(*cutoff)),
		aukernel.WithParameter(aukernel.TargetEffect, aukernel.ParamResonance, float32(*resonance)),
	}
	if *sweepDepth != 0 {
		wave, err := aukernel.ParseWaveform(*sweepWave)
		if err != nil {
			log.Fatal(err)
		}
		opts = append(opts, aukernel.WithCutoffSweep(*cutoff, *sweepDepth, *sweepRate, wave))
	}
	if *verbose {
		lastPct := -1
		opts = append(opts, aukernel.WithProgress(func(done, total int64) {
			pct := int(100 * done / total)
			if pct/10 != lastPct/10 {
				log.Printf("rendered %d/%d frames (%d%%)", done, total, pct)
				lastPct = pct
			}
		}))
		log.Printf("timeline: %d events, %d frames at %d Hz", len(tl.Events), tl.Length(), *sampleRate)
	}

	samples, err := aukernel.RenderTimeline(tl, opts...)
	if err != nil {
		log.Fatal(err)
	}

	f, err := os.Create(*outPath)
	if err != nil {
		log.Fatal(err)
	}
	if err := aukernel.WriteWAV(f, samples, *sampleRate); err != nil {
		f.Close()
		log.Fatal(err)
	}
	if err := f.Close(); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("wrote %s (%.2fs)\n", *outPath, float64(len(samples)/2)/float64(*sampleRate))
}

func loadTimeline(path string, sampleRate float64) (*aukernel.Timeline, error) {
	if strings.TrimSpace(path) == "" {
		return aukernel.DemoTimeline(sampleRate), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return aukernel.TimelineFromSMF(f, sampleRate)
}

func writeDemoMIDI(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := aukernel.WriteSMF(f, aukernel.DemoNotes(), 120); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
