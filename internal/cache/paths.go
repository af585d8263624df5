package cache

// View key builders for cached read models. Each write path declares, up
// front, exactly which view keys it renders into; invalidation walks the
// declared set and nothing else.

// CourseViewKeys returns the cached view keys a course write invalidates.
func CourseViewKeys(courseID, slug string) []string {
	return []string{
		"view:courses:" + courseID,
		"view:courses:slug:" + slug,
		"view:courses:list",
	}
}

// ProductViewKeys returns the cached view keys a product write invalidates.
func ProductViewKeys(productID, slug string) []string {
	return []string{
		"view:products:" + productID,
		"view:products:slug:" + slug,
		"view:products:list",
	}
}

// UserViewKeys returns the cached view keys a balance write invalidates.
func UserViewKeys(userID string) []string {
	return []string{
		"view:users:" + userID,
		"view:users:" + userID + ":redemptions",
	}
}

// EnrollmentViewKeys returns the cached view keys a progress write
// invalidates.
func EnrollmentViewKeys(enrollmentID, userID string) []string {
	return []string{
		"view:enrollments:" + enrollmentID,
		"view:users:" + userID + ":enrollments",
	}
}
