package platform

import "os"

func processID() int { return os.Getpid() }
