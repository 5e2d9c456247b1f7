package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/errwrap"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/volkhovnik/abootimg"
)

const version = "0.6"

// Default extraction file names
const (
	defConfigName    = "bootimg.cfg"
	defKernelName    = "zImage"
	defRamdiskName   = "initrd.gz"
	defSecondName    = "stage2.img"
	defDtbPrefix     = "platform"
	defSignatureName = "signature"
)

var (
	cmdInfo    bool
	cmdExtract bool
	cmdUpdate  bool
	cmdCreate  bool
	cmdDtbs    bool

	configArgs  []string
	configFile  string
	kernelFile  string
	ramdiskFile string
	secondFile  string
	dtbPrefix   string
	sigFile     string

	quiet bool
)

func checkMsg(err error, msg string) {
	if err != nil {
		fmt.Printf(" ! Error %s!\n", msg)
		fmt.Printf(" ! %s\n", err.Error())
		os.Exit(2)
	}
}

func checkWrap(err error) {
	if err == nil {
		return
	}

	if w, ok := err.(errwrap.Wrapper); ok {
		wrapped := w.WrappedErrors()
		fmt.Printf(" ! Error %s!\n", wrapped[0].Error())
		fmt.Printf(" ! %s\n", wrapped[1].Error())
	} else {
		fmt.Printf(" ! %s\n", err.Error())
	}

	os.Exit(2)
}

func printUsage() {
	fmt.Printf(`abootimg %s - manipulate Android boot images

  abootimg -i <bootimg>
      print boot image information

  abootimg -x <bootimg> [<bootimg.cfg> [<kernel> [<ramdisk> [<secondstage> [<dtbs> [<signature>]]]]]]
      extract objects from boot image

  abootimg -u <bootimg> [-c "param=value"] [-f <bootimg.cfg>] [-k <kernel>] [-r <ramdisk>] [-s <secondstage>] [-d <dtbs>]
      update a valid boot image with the objects given in command line

  abootimg --create <bootimg> [-c "param=value"] [-f <bootimg.cfg>] -k <kernel> -r <ramdisk> [-s <secondstage>] [-d <dtbs>]
      create a new image from scratch; kernel and ramdisk are mandatory

  abootimg --dtbs <bootimg>
      print device tree table information

`, version)
	flag.PrintDefaults()
}

func main() {
	flag.BoolVarP(&cmdInfo, "info", "i", false, "Print boot image information.")
	flag.BoolVarP(&cmdExtract, "extract", "x", false, "Extract objects from the boot image.")
	flag.BoolVarP(&cmdUpdate, "update", "u", false, "Update an existing boot image.")
	flag.BoolVar(&cmdCreate, "create", false, "Create a new boot image from scratch.")
	flag.BoolVar(&cmdDtbs, "dtbs", false, "Print device tree table information.")

	flag.StringArrayVarP(&configArgs, "config", "c", nil, "Config directive \"param=value\", repeatable.")
	flag.StringVarP(&configFile, "file", "f", "", "Config file to apply to the header.")
	flag.StringVarP(&kernelFile, "kernel", "k", "", "Kernel image to pack.")
	flag.StringVarP(&ramdiskFile, "ramdisk", "r", "", "Ramdisk image to pack.")
	flag.StringVarP(&secondFile, "second", "s", "", "Second stage image to pack.")
	flag.StringVarP(&dtbPrefix, "dtb", "d", "", "Device tree file set prefix (<prefix>.dtbh, <prefix>.dtb_p<i>).")
	flag.StringVarP(&sigFile, "signature", "g", "", "Signature file name for extraction.")
	flag.BoolVarP(&quiet, "quiet", "q", false, "Only report errors.")

	flag.Usage = printUsage
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp:       true,
		DisableLevelTruncation: true,
	})
	if quiet {
		logrus.SetLevel(logrus.WarnLevel)
	}

	args := flag.Args()

	modes := 0
	for _, on := range []bool{cmdInfo, cmdExtract, cmdUpdate, cmdCreate, cmdDtbs} {
		if on {
			modes++
		}
	}

	if modes == 0 && len(args) == 0 {
		if path, ok := cliGetInputPath(); ok {
			runInfo(path)
			return
		}

		printUsage()
		os.Exit(2)
	}

	if modes != 1 || len(args) < 1 {
		fmt.Println("error - bad arguments")
		fmt.Println()
		printUsage()
		os.Exit(2)
	}

	switch {
	case cmdInfo:
		runInfo(args[0])
	case cmdExtract:
		runExtract(args)
	case cmdUpdate:
		runUpdate(args[0])
	case cmdCreate:
		runCreate(args[0])
	case cmdDtbs:
		runDtbs(args[0])
	}
}

// openImage opens a container and unpacks its validated header.
func openImage(path string, writable bool) (*os.File, *abootimg.Image) {
	mode := os.O_RDONLY
	if writable {
		mode = os.O_RDWR
	}

	f, err := os.OpenFile(path, mode, 0644)
	checkMsg(err, "opening image")

	size, blkdev, err := probeContainer(f)
	checkMsg(err, "querying image size")

	img, err := abootimg.UnpackImage(f, size, blkdev)
	checkWrap(err)

	return f, img
}

func runInfo(path string) {
	f, img := openImage(path, false)
	defer f.Close()

	img.Info(os.Stdout, path)
}

func runExtract(args []string) {
	names := []string{defConfigName, defKernelName, defRamdiskName, defSecondName, defDtbPrefix, defSignatureName}
	if sigFile != "" {
		names[5] = sigFile
	}
	for i, arg := range args[1:] {
		if i >= len(names) {
			break
		}
		names[i] = arg
	}

	f, img := openImage(args[0], false)
	defer f.Close()

	checkWrap(img.ExtractConfig(names[0]))
	checkWrap(img.ExtractKernel(f, names[1]))
	checkWrap(img.ExtractRamdisk(f, names[2]))
	checkWrap(img.ExtractSecond(f, names[3]))
	checkWrap(img.ExtractDtbs(f, names[4]))
	checkWrap(img.ExtractSignature(f, names[5]))
}

// directives collects header directives: config file lines first, then
// every -c argument, in command line order.
func directives() []string {
	var dirs []string

	if configFile != "" {
		logrus.Infof("reading config file %s", configFile)

		data, err := os.ReadFile(configFile)
		checkMsg(err, "reading config file")

		lines := strings.Split(string(data), "\n")
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
		dirs = append(dirs, lines...)
	}

	if len(configArgs) > 0 {
		logrus.Info("reading config args")
		dirs = append(dirs, configArgs...)
	}

	return dirs
}

func sources() abootimg.Sources {
	return abootimg.Sources{
		Kernel:    kernelFile,
		Ramdisk:   ramdiskFile,
		Second:    secondFile,
		DtbPrefix: dtbPrefix,
	}
}

func runUpdate(path string) {
	f, img := openImage(path, true)
	defer f.Close()

	checkWrap(img.ApplyConfig(directives()))
	checkWrap(img.UpdateSegments(f, sources()))

	logrus.Infof("writing boot image %s", path)
	checkWrap(img.WriteImage(f))
}

func runCreate(path string) {
	if kernelFile == "" || ramdiskFile == "" {
		fmt.Println(" ! kernel and ramdisk are mandatory to create a boot image")
		fmt.Println()
		printUsage()
		os.Exit(2)
	}

	img := abootimg.NewImage()

	// An existing block device fixes the container size up front.
	mode := os.O_RDWR | os.O_CREATE | os.O_TRUNC
	if st, err := os.Stat(path); err == nil && st.Mode()&os.ModeDevice != 0 {
		probe, err := os.Open(path)
		checkMsg(err, "opening block device")

		size, blkdev, err := probeContainer(probe)
		probe.Close()
		checkMsg(err, "querying device size")

		img.Size = size
		img.IsBlockDev = blkdev
		mode = os.O_RDWR
	}

	checkWrap(img.ApplyConfig(directives()))
	checkWrap(img.CreateSegments(sources()))

	f, err := os.OpenFile(path, mode, 0644)
	checkMsg(err, "creating output image")
	defer f.Close()

	logrus.Infof("writing boot image %s", path)
	checkWrap(img.WriteImage(f))
}

func runDtbs(path string) {
	f, img := openImage(path, false)
	defer f.Close()

	table, err := img.ReadDtbs(f)
	checkWrap(err)

	table.Info(os.Stdout)
}
