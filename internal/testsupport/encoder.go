package testsupport

// TouchOutputScript is an encoder stub body that creates its last argument
// (the output file), answers -version, and exits when it reads "q".
const TouchOutputScript = `for last; do :; done
if [ "$1" = "-version" ]; then echo "ffmpeg version stub"; exit 0; fi
case "$*" in *-list_devices*)
  echo '[dshow @ 0x1] "Stub Microphone" (audio)' >&2; exit 1;;
esac
: > "$last"
case "$*" in *-t\ *|*-vframes*) exit 0;; esac
while read line; do [ "$line" = "q" ] && exit 0; done
exit 0`
