/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Mar 29 13:02:11 2018 mstenber
 * Last modified: Thu Mar 29 14:47:30 2018 mstenber
 * Edit time:     64 min
 *
 */

package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"

	"github.com/kimho912/file-system/mfs"
	"github.com/kimho912/file-system/mlog"
	"github.com/kimho912/file-system/storage/factory"
	"github.com/kimho912/file-system/volume"
	"github.com/pkg/errors"
)

const prompt = "mfs> "

var errQuit = errors.New("quit")

type command struct {
	// Required arguments, and what is missing if they are not there
	args    int
	missing string

	run func(out io.Writer, s *mfs.Session, args []string) error
}

var commands = map[string]command{
	"createfs": {1, "No filename specified", func(out io.Writer, s *mfs.Session, args []string) error {
		return s.CreateVolume(args[0])
	}},
	"savefs": {0, "", func(out io.Writer, s *mfs.Session, args []string) error {
		return s.Save()
	}},
	"open": {1, "No filename specified", func(out io.Writer, s *mfs.Session, args []string) error {
		return s.Open(args[0])
	}},
	"close": {0, "", func(out io.Writer, s *mfs.Session, args []string) error {
		return s.Close()
	}},
	"list": {0, "", func(out io.Writer, s *mfs.Session, args []string) error {
		return list(out, s, args)
	}},
	"df": {0, "", func(out io.Writer, s *mfs.Session, args []string) error {
		free, err := s.FreeBytes()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d bytes free\n", free)
		return nil
	}},
	"insert": {1, "No filename specified", func(out io.Writer, s *mfs.Session, args []string) error {
		return s.Insert(args[0])
	}},
	"retrieve": {1, "No filename specified", func(out io.Writer, s *mfs.Session, args []string) error {
		outPath := ""
		if len(args) > 1 {
			outPath = args[1]
		}
		return s.Retrieve(args[0], outPath)
	}},
	"read": {3, "Usage: read <filename> <start> <count>", func(out io.Writer, s *mfs.Session, args []string) error {
		return read(out, s, args)
	}},
	"delete": {1, "No filename specified", func(out io.Writer, s *mfs.Session, args []string) error {
		return s.Delete(args[0])
	}},
	"undel": {1, "No filename specified", func(out io.Writer, s *mfs.Session, args []string) error {
		return s.Undelete(args[0])
	}},
	"attrib": {2, "Usage: attrib <+h|-h|+r|-r> <filename>", func(out io.Writer, s *mfs.Session, args []string) error {
		return s.SetAttribute(args[1], volume.AttributeOp(args[0]))
	}},
	"quit": {0, "", func(out io.Writer, s *mfs.Session, args []string) error {
		return errQuit
	}},
}

func list(out io.Writer, s *mfs.Session, args []string) error {
	mode := volume.ListDefault
	if len(args) > 0 {
		switch args[0] {
		case "-h":
			mode = volume.ListShowHidden
		case "-a":
			mode = volume.ListShowAttributes
		default:
			return errors.Errorf("Incorrect parameter %s", args[0])
		}
	}
	l, err := s.List(mode)
	if err != nil {
		return err
	}
	for _, f := range l {
		if mode == volume.ListShowAttributes {
			fmt.Fprintf(out, "%s\tAttribute: %v\n", f.Name, f.Attributes)
		} else {
			fmt.Fprintf(out, "%s\n", f.Name)
		}
	}
	return nil
}

func read(out io.Writer, s *mfs.Session, args []string) error {
	start, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return errors.Errorf("Invalid start %s", args[1])
	}
	count, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return errors.Errorf("Invalid count %s", args[2])
	}
	b, err := s.ReadRange(args[0], start, count)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "% x\n", b)
	return nil
}

// run reads commands from in until it ends or quit is given.
func run(in io.Reader, out io.Writer, s *mfs.Session) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		mlog.Printf2("cmd/mfs/mfs", "command %v", fields)
		c, ok := commands[fields[0]]
		if !ok {
			fmt.Fprintf(out, "ERROR: Unknown command %s\n", fields[0])
			continue
		}
		args := fields[1:]
		if len(args) < c.args {
			fmt.Fprintf(out, "ERROR: %s\n", c.missing)
			continue
		}
		err := c.run(out, s, args)
		if err == errQuit {
			return nil
		}
		if err != nil {
			fmt.Fprintf(out, "ERROR: %v\n", err)
		}
	}
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n\n%s [options]\n", os.Args[0])
		flag.PrintDefaults()
	}
	backendp := flag.String("backend", factory.DefaultBackend,
		fmt.Sprintf("Backend to use (possible: %v)", factory.List()))
	password := flag.String("password", "", "Password (encrypts the blocks; badger and bolt only)")
	salt := flag.String("salt", "", "Salt")
	g := volume.DefaultGeometry
	flag.IntVar(&g.BlockSize, "blocksize", g.BlockSize, "Block size in bytes")
	flag.IntVar(&g.NumBlocks, "blocks", g.NumBlocks, "Number of blocks")
	flag.IntVar(&g.NumFiles, "files", g.NumFiles, "Maximum number of files")
	flag.IntVar(&g.BlocksPerFile, "blocksperfile", g.BlocksPerFile, "Maximum number of blocks per file")
	cpuprofile := flag.String("cpuprofile", "", "CPU profile file")

	flag.Parse()

	if err := g.Validate(); err != nil {
		log.Fatal(err)
	}
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	s := mfs.Session{}.Init(mfs.Configuration{Geometry: g,
		BackendName: *backendp, Password: *password, Salt: *salt})
	if err := run(os.Stdin, os.Stdout, s); err != nil {
		log.Print(err)
	}
	if s.IsOpen() {
		s.Close()
	}
}
