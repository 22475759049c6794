// Package instagram recognises Instagram media URLs.
//
// Only instagram.com, www.instagram.com and m.instagram.com are accepted.
// The first path segment decides the kind:
//
//	/p/<code>/            post
//	/reel/<code>/         reel (also /reels/)
//	/stories/<user>/<id>/ story
//	/tv/<code>/           extended video
//
// Anything else, including malformed URLs, is simply not a match.
package instagram
