package processing

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
)

type fakeText struct {
	response string
	err      error
	calls    int
	last     TextRequest
}

func (f *fakeText) GenerateJSON(ctx context.Context, req TextRequest) (string, error) {
	f.calls++
	f.last = req
	return f.response, f.err
}

type fakeImages struct {
	mu     sync.Mutex
	fail   map[string]bool // keyed by substring of the prompt
	empty  bool
	calls  int
	result []byte
}

func (f *fakeImages) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	for key := range f.fail {
		if strings.Contains(prompt, key) {
			return nil, errors.New("image service unavailable")
		}
	}
	if f.empty {
		return nil, nil
	}
	if f.result != nil {
		return f.result, nil
	}
	return []byte("generated:" + prompt), nil
}

type fakeSpeech struct {
	fail map[string]bool
}

func (f *fakeSpeech) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if f.fail[text] {
		return nil, errors.New("speech service unavailable")
	}
	return []byte("mp3:" + text), nil
}

// fakeRunner stands in for ffmpeg. Successful runs create the output file,
// which is always the last argument.
type fakeRunner struct {
	mu              sync.Mutex
	missing         bool
	failAudioConcat bool
	failVideo       bool
	failSilence     bool
	calls           [][]string
	imageLists      []string
	audioLists      []string

	// When hold is set, mux calls report on entered and wait for hold.
	hold    chan struct{}
	entered chan struct{}
	workDirs        []string
}

func (r *fakeRunner) LookPath(name string) (string, error) {
	if r.missing {
		return "", errors.New("executable file not found in $PATH")
	}
	return "/usr/bin/" + name, nil
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) error {
	if r.hold != nil && strings.HasSuffix(args[len(args)-1], ".mp4") {
		r.entered <- struct{}{}
		<-r.hold
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, args)

	out := args[len(args)-1]
	if containsArg(args, "lavfi") {
		if r.failSilence {
			return errors.New("exit status 1: unknown input format")
		}
		return os.WriteFile(out, []byte("silence"), 0o644)
	}
	isAudioConcat := containsArg(args, "-c") && strings.HasSuffix(out, ".mp3")
	if isAudioConcat {
		if r.failAudioConcat {
			return errors.New("exit status 1: invalid data found when processing input")
		}
		content, err := os.ReadFile(args[argIndex(args, "-i")+1])
		if err != nil {
			return err
		}
		r.audioLists = append(r.audioLists, string(content))
	}
	if !isAudioConcat {
		if r.failVideo {
			return errors.New("exit status 1: conversion failed")
		}
		list := args[argIndex(args, "-i")+1]
		content, err := os.ReadFile(list)
		if err != nil {
			return err
		}
		r.imageLists = append(r.imageLists, string(content))
		r.workDirs = append(r.workDirs, strings.TrimSuffix(list, "/images.txt"))
	}
	return os.WriteFile(out, []byte(strings.Join(args, " ")), 0o644)
}

func (r *fakeRunner) callsWith(arg string) [][]string {
	var calls [][]string
	for _, c := range r.calls {
		if containsArg(c, arg) {
			calls = append(calls, c)
		}
	}
	return calls
}

func (r *fakeRunner) videoCalls() [][]string {
	var calls [][]string
	for _, c := range r.calls {
		if strings.HasSuffix(c[len(c)-1], ".mp4") {
			calls = append(calls, c)
		}
	}
	return calls
}

func containsArg(args []string, want string) bool {
	return argIndex(args, want) >= 0
}

func argIndex(args []string, want string) int {
	for i, a := range args {
		if a == want {
			return i
		}
	}
	return -1
}

func photosynthesisRequest() GenerationRequest {
	return GenerationRequest{Topic: "Photosynthesis", GradeBand: "6-8", Region: "Kenya", SlideCount: 5}
}
