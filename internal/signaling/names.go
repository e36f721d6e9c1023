package signaling

import (
	"hash/fnv"
	"strings"
)

var adjectives = []string{
	"tiny", "happy", "sleepy", "fluffy", "sparkly", "cheery", "silly", "jolly", "cozy", "shiny",
	"golden", "silver", "crimson", "emerald", "purple", "blue", "red", "green", "bright", "gentle",
	"brave", "calm", "swift", "silent", "noisy", "bouncy", "fuzzy", "plucky", "merry", "peppy",
}

var animals = []string{
	"kitten", "puppy", "bunny", "panda", "koala", "fox", "otter", "hedgehog", "squirrel", "hamster",
	"chick", "duckling", "fawn", "foal", "lamb", "calf", "porcupine", "raccoon", "skunk", "mole",
	"mouse", "rat", "ferret", "weasel", "beaver", "seahorse", "starfish", "dolphin", "whale", "narwhal",
	"penguin", "flamingo", "pelican", "swallow", "sparrow", "robin", "toucan", "parrot", "canary", "cockatoo",
}

var creatures = []string{
	"dragon", "unicorn", "griffin", "phoenix", "fairy", "gnome", "sprite", "pixie", "mermaid", "elf",
}

// DisplayName derives a readable name such as "Cozy Otter" from a participant
// id. The same id always maps to the same name.
func DisplayName(id string) string {
	h := fnv.New32a()
	h.Write([]byte(id))
	sum := h.Sum32()

	nouns := len(animals) + len(creatures)
	adj := adjectives[sum%uint32(len(adjectives))]
	n := int((sum / uint32(len(adjectives))) % uint32(nouns))

	noun := ""
	if n < len(animals) {
		noun = animals[n]
	} else {
		noun = creatures[n-len(animals)]
	}
	return capitalize(adj) + " " + capitalize(noun)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
