package main

import "github.com/example/graphrun/internal/bench/stageprof"

func main() {
	stageprof.Main()
}
