package mathutil

// SystemSize is the dimension of the linear systems solved here (x, y, z).
const SystemSize = 3
