package pixsort_test

import (
	"fmt"

	"github.com/gogpu/pixsort"
)

func ExampleSortSingleChannel() {
	offsets, err := pixsort.SortSingleChannel(
		[]float32{3.0, 1.0, 2.0},
		[]uint32{10, 20, 30},
	)
	if err != nil {
		panic(err)
	}
	fmt.Println(offsets)
	// Output: [20 30 10]
}

func ExampleSortMultiChannel() {
	out, err := pixsort.SortMultiChannel(
		[][]float32{{5, 1}, {2, 9}},
		[]uint32{100, 200},
		2,
	)
	if err != nil {
		panic(err)
	}
	fmt.Println(out)
	// Output: [200 100 100 200]
}
