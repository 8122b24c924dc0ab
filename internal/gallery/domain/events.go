package domain

// Event types published after the owning transaction commits.
const (
	EventAlbumCreated = "album.created"
	EventAlbumUpdated = "album.updated"
	EventAlbumDeleted = "album.deleted"
	EventPhotoCreated = "photo.created"
	EventPhotoUpdated = "photo.updated"
	EventPhotoDeleted = "photo.deleted"
)
