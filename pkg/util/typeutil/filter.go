package typeutil

// FilterZero returns the non-zero elements of l in order. l is not modified.
func FilterZero[T comparable](l []T) []T {
	var zero T
	res := make([]T, 0, len(l))
	for _, v := range l {
		if v != zero {
			res = append(res, v)
		}
	}
	return res
}
