package chat

import "math/rand/v2"

// splashArts holds the immutable banners shown to an unmatched session.
// No library in the example pack offers weighted slice selection; this is
// a one-line use of the standard library's PRNG, not a domain concern.
var splashArts = []string{art1, art2}

// RandomArt picks one splash banner, chosen once per session at creation.
func RandomArt() string {
	return splashArts[rand.IntN(len(splashArts))]
}

const art1 = `
                  ___           ___           ___           ___           ___                         ___
      ___        /  /\         /  /\         /__/\         /  /\         /  /\                       /  /\
     /  /\      /  /:/_       /  /::\       |  |::\       /  /:/_       /  /:/_                     /  /:/_
    /  /:/     /  /:/ /\     /  /:/\:\      |  |:|:\     /  /:/ /\     /  /:/ /\    ___     ___    /  /:/ /\
   /  /:/     /  /:/ /:/_   /  /:/~/:/    __|__|:|\:\   /  /:/ /:/_   /  /:/_/::\  /__/\   /  /\  /  /:/ /:/_
  /  /::\    /__/:/ /:/ /\ /__/:/ /:/___ /__/::::| \:\ /__/:/ /:/ /\ /__/:/__\/\:\ \  \:\ /  /:/ /__/:/ /:/ /
 /__/:/\:\   \  \:\/:/ /:/ \  \:\/:::::/ \  \:\~~\__\/ \  \:\/:/ /:/ \  \:\ /~~/:/  \  \:\  /:/  \  \:\/:/ /:/
 \__\/  \:\   \  \::/ /:/   \  \::/~~~~   \  \:\        \  \::/ /:/   \  \:\  /:/    \  \:\/:/    \  \::/ /:/
      \  \:\   \  \:\/:/     \  \:\        \  \:\        \  \:\/:/     \  \:\/:/      \  \::/      \  \:\/:/
       \__\/    \  \::/       \  \:\        \  \:\        \  \::/       \  \::/        \__\/        \  \::/
                 \__\/         \__\/         \__\/         \__\/         \__\/                       \__\/
`

const art2 = `
   _____                                         __
  /__   \ ___  _ __  _ __ ___    ___   __ _ /\ /\ \ \
    / /\// _ \| '__|| '_ ' _ \  / _ \ / _' / / _' \ \ \
   / /  |  __/| |   | | | | | ||  __/| (_| \ \/ (_) \ \
   \/    \___||_|   |_| |_| |_| \___| \__, |\_/\___/ /
                                       |___/     \___/
`
