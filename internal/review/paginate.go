package review

// DefaultPageSize is the number of records shown per page.
const DefaultPageSize = 10

// PageCount returns max(1, ceil(n/size)). An empty view still has one page.
func PageCount(n, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	pages := (n + size - 1) / size
	if pages < 1 {
		return 1
	}
	return pages
}

// Paginate returns view[index*size : index*size+size] clamped to the view.
// An out-of-range index yields an empty page; callers reset the index when
// the view changes.
func Paginate(view View, size, index int) View {
	if size <= 0 {
		size = DefaultPageSize
	}
	if index < 0 {
		return View{}
	}

	start := index * size
	if start >= len(view) {
		return View{}
	}
	end := start + size
	if end > len(view) {
		end = len(view)
	}
	return view[start:end:end]
}
