/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Sat Dec 30 13:41:33 2017 mstenber
 * Last modified: Mon Mar 26 10:12:40 2018 mstenber
 * Edit time:     118 min
 *
 */

// mlog is maybe-log, a small wrapper of standard 'log' used by the
// volume and its storage backends.
//
// - output is chosen by a regular expression (MLOG environment
// variable, or the -mlog flag) matched against the tag given to
// Printf2 (by convention the package-relative file name, e.g.
// "volume/insert"); by default everything is off, and disabled
// logging costs a single atomic load
//
// - call stack depth is used to indent the output, so nested
// operations (e.g. insert -> allocateBlock) read as a trace
package mlog

import (
	"flag"
	"log"
	"os"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
)

const (
	stateUninitialized int32 = iota
	stateDisabled
	stateEnabled
)

const maxDepth = 64

var status = stateUninitialized

// Everything below is protected by mutex.
var mutex sync.Mutex
var logger = log.New(os.Stderr, "", log.Ltime|log.Lmicroseconds)
var flagPattern *string
var pattern string
var patternRegexp *regexp.Regexp
var tag2Enabled map[string]bool
var minDepth = maxDepth
var callers = make([]uintptr, maxDepth)

func init() {
	flagPattern = flag.String("mlog", "", "Enable logging for tags matching the given regular expression")
}

// IsEnabled can be used to check if mlog is in use at all before
// doing something expensive to produce log arguments.
func IsEnabled() bool {
	st := atomic.LoadInt32(&status)
	return st != stateDisabled
}

// SetLogger replaces the output logger. The returned undo function
// restores the previous one.
func SetLogger(l *log.Logger) (undo func()) {
	mutex.Lock()
	defer mutex.Unlock()
	old := logger
	logger = l
	return func() {
		mutex.Lock()
		defer mutex.Unlock()
		logger = old
	}
}

// SetPattern overrides the environment/flag provided pattern. The
// returned undo function restores the previous state.
func SetPattern(p string) (undo func()) {
	mutex.Lock()
	defer mutex.Unlock()
	old := pattern
	oldStatus := atomic.LoadInt32(&status)
	setPattern(p)
	return func() {
		mutex.Lock()
		defer mutex.Unlock()
		if oldStatus == stateUninitialized {
			atomic.StoreInt32(&status, stateUninitialized)
			return
		}
		setPattern(old)
	}
}

func setPattern(p string) {
	pattern = p
	tag2Enabled = make(map[string]bool)
	minDepth = maxDepth
	if p == "" {
		patternRegexp = nil
		atomic.StoreInt32(&status, stateDisabled)
		return
	}
	patternRegexp = regexp.MustCompile(p)
	atomic.StoreInt32(&status, stateEnabled)
}

// initialize picks the pattern from flag or environment on first
// use; flag wins. Called with mutex held.
func initialize() {
	p := os.Getenv("MLOG")
	if flagPattern != nil && *flagPattern != "" {
		p = *flagPattern
	}
	setPattern(p)
}

// Printf is drop-in replacement of log.Printf; the tag is derived
// from the caller's file name, which is slower than Printf2.
func Printf(format string, args ...interface{}) {
	if atomic.LoadInt32(&status) == stateDisabled {
		return
	}
	_, file, _, ok := runtime.Caller(1)
	if !ok {
		return
	}
	Printf2(file, format, args...)
}

// Printf2 logs the message if tag matches the active pattern.
func Printf2(tag string, format string, args ...interface{}) {
	if atomic.LoadInt32(&status) == stateDisabled {
		return
	}
	mutex.Lock()
	defer mutex.Unlock()
	if atomic.LoadInt32(&status) == stateUninitialized {
		initialize()
		if atomic.LoadInt32(&status) == stateDisabled {
			return
		}
	}
	enabled, ok := tag2Enabled[tag]
	if !ok {
		enabled = patternRegexp.MatchString(tag)
		tag2Enabled[tag] = enabled
	}
	if !enabled {
		return
	}
	depth := runtime.Callers(1, callers)
	if depth < minDepth {
		minDepth = depth
	}
	depth -= minDepth
	if depth > 0 {
		format = strings.Repeat(".", depth) + format
	}
	logger.Printf(format, args...)
}
