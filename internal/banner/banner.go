package banner

import "fmt"

const Version = "1.0.0"

func Print() {
	banner := `
    ________          __ _       __      __       __
   / ____/ /__  ___  / /| |     / /___ _/ /______/ /_
  / /_  / / _ \/ _ \/ __/ | /| / / __  / __/ ___/ __ \
 / __/ / /  __/  __/ /_ | |/ |/ / /_/ / /_/ /__/ / / /
/_/   /_/\___/\___/\__/ |__/|__/\__,_/\__/\___/_/ /_/
                               v%s - Fleet Sentinel
    `
	fmt.Printf(banner, Version)
	fmt.Println("\n------------------------------------------------")
}
