package sqlinline

const QSelectCharacterBuildImage = `--sql 8d039c67-a3b7-490c-b8e5-b14e556a3c89
select image_url
from character_builds
where portrait_id = $1::text
  and build_type = $2::text
  and image_url <> ''
order by created_at desc
limit 1;
`
