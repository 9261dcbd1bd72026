// Package lockfile reads and writes the two lock files flowc keeps beside
// the project file, and stores resolved versions through a [Store].
//
// versions.lock is a JSON object from flow alias to its compatible SDK
// range:
//
//	{
//	  "checkout": {"min_sdk_version": 16, "max_sdk_version": 30},
//	  "login": {"min_sdk_version": 12}
//	}
//
// hashes.lock lists one bundle per line as "path:sha256", sorted by path.
//
// The version map can also be kept in MongoDB with [MongoStore], so that a
// fleet of "flowc serve" instances reads the ranges computed by CI.
package lockfile
