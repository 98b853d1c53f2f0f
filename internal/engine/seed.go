package engine

// DefaultSeed is indexed on first start, when a category has no word file.
func DefaultSeed() map[string][]string {
	return map[string][]string{
		"products": {
			"protein powder", "whey isolate", "casein protein", "creatine monohydrate",
			"bcaa powder", "eaa powder", "pre workout", "fat burner", "mass gainer",
			"multivitamin", "omega-3", "fish oil", "vitamin d", "magnesium", "zinc",
			"jacked3d", "c4", "pre-jym", "superpump250", "gold standard",
		},
		"brands": {
			"optimum nutrition", "dymatize", "muscle tech", "bpi sports",
			"cellucor", "ghost", "quest nutrition", "gold standard",
			"isopure", "gnc", "vitamin shoppe", "nature made",
		},
		"flavors": {
			"chocolate", "vanilla", "strawberry", "cookies and cream",
			"fruit punch", "blue raspberry", "unflavored",
		},
	}
}
